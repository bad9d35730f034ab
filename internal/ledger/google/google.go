// Package google implements the ledger store over a Google Sheets
// spreadsheet: one worksheet per monthly partition, five fixed columns,
// worksheets created lazily with the standard header.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"caja/internal/core"
	"caja/internal/ledger"
)

// handleTTL bounds how long worksheet metadata is reused before the
// spreadsheet is listed again.
const handleTTL = 60 * time.Second

type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	Location        *time.Location
}

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	loc           *time.Location

	mu       sync.Mutex
	sheetIDs map[string]int64
	listedAt time.Time
}

var _ ledger.Store = (*Store)(nil)

// New creates a Sheets-backed store using service account credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		loc:           loc,
		sheetIDs:      make(map[string]int64),
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	if len(credentialsJSON) == 0 {
		file := strings.TrimSpace(cfg.CredentialsFile)
		if file == "" {
			file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		}
		if file == "" {
			return nil, errors.New("missing service account credentials")
		}
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (s *Store) ReadAll(ctx context.Context, key ledger.PartitionKey) ([]core.Movement, error) {
	if _, err := s.ensureSheet(ctx, key); err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("'%s'!A2:E", key)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []core.Movement
	for _, raw := range resp.Values {
		m, ok := ledger.DecodeRow(ledger.ToStrings(raw), s.loc)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, key ledger.PartitionKey, m core.Movement) error {
	if _, err := s.ensureSheet(ctx, key); err != nil {
		return err
	}
	row := ledger.EncodeRow(m)
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	rng := fmt.Sprintf("'%s'!A:E", key)
	vr := &gsheet.ValueRange{Values: [][]interface{}{values}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	return nil
}

func (s *Store) UpdateCell(ctx context.Context, key ledger.PartitionKey, row int, col ledger.Column, value string) error {
	if row < 1 {
		return core.ErrNoSuchRow
	}
	if _, err := s.ensureSheet(ctx, key); err != nil {
		return err
	}
	// Physical row: +1 for the header.
	cell := fmt.Sprintf("'%s'!%c%d", key, 'A'+int(col)-1, row+1)
	vr := &gsheet.ValueRange{Values: [][]interface{}{{value}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, cell, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", cell, err)
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, key ledger.PartitionKey, row int) error {
	if row < 1 {
		return core.ErrNoSuchRow
	}
	sheetID, err := s.ensureSheet(ctx, key)
	if err != nil {
		return err
	}
	// 0-based physical index: the header sits at 0, movement row n at n.
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row) + 1,
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", row, key, err)
	}
	return nil
}

// ensureSheet resolves the worksheet for the partition, creating it with
// the standard header when the month rolls over. Metadata is cached for
// handleTTL to coalesce the per-call spreadsheet listing.
func (s *Store) ensureSheet(ctx context.Context, key ledger.PartitionKey) (int64, error) {
	title := string(key)

	s.mu.Lock()
	if id, ok := s.sheetIDs[title]; ok && time.Since(s.listedAt) < handleTTL {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}

	s.mu.Lock()
	s.sheetIDs = make(map[string]int64, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	s.listedAt = time.Now()
	id, ok := s.sheetIDs[title]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	slog.InfoContext(ctx, "creating partition worksheet", "partition", title)
	id, err = s.addSheet(ctx, title)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.sheetIDs[title] = id
	s.mu.Unlock()
	return id, nil
}

func (s *Store) addSheet(ctx context.Context, title string) (int64, error) {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{
					Title: title,
					GridProperties: &gsheet.GridProperties{
						RowCount:    1000,
						ColumnCount: int64(len(ledger.Header)),
					},
				},
			},
		}},
	}
	resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", title, err)
	}

	header := make([]interface{}, len(ledger.Header))
	for i, h := range ledger.Header {
		header[i] = h
	}
	rng := fmt.Sprintf("'%s'!A1:E1", title)
	vr := &gsheet.ValueRange{Values: [][]interface{}{header}}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("write header %s: %w", rng, err)
	}

	var id int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		id = resp.Replies[0].AddSheet.Properties.SheetId
	}
	return id, nil
}
