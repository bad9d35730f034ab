// Package sqlite implements the ledger store on a local SQLite database,
// keeping the same five-field row model as the sheet backend. Useful for
// development and for running without Google credentials.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"caja/internal/core"
	"caja/internal/ledger"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

var _ ledger.Store = (*Store)(nil)

func New(dbPath string, loc *time.Location) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ReadAll(ctx context.Context, key ledger.PartitionKey) ([]core.Movement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fecha, hora, proveedor, monto, pagado FROM movements WHERE partition = ? ORDER BY id`,
		string(key))
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var out []core.Movement
	for rows.Next() {
		var fecha, hora, proveedor, monto string
		var pagado int
		if err := rows.Scan(&fecha, &hora, &proveedor, &monto, &pagado); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		date, err := time.ParseInLocation("2006-01-02", fecha, s.loc)
		if err != nil {
			continue
		}
		amount, err := decimal.NewFromString(monto)
		if err != nil {
			continue
		}
		out = append(out, core.Movement{
			ID:           uuid.New(),
			Date:         date,
			Time:         hora,
			Counterparty: proveedor,
			Amount:       amount,
			Paid:         pagado != 0,
		})
	}
	return out, rows.Err()
}

func (s *Store) Append(ctx context.Context, key ledger.PartitionKey, m core.Movement) error {
	row := ledger.EncodeRow(m)
	pagado := 0
	if m.Paid {
		pagado = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO movements (partition, fecha, hora, proveedor, monto, pagado) VALUES (?, ?, ?, ?, ?, ?)`,
		string(key), row[0], row[1], row[2], row[3], pagado)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (s *Store) UpdateCell(ctx context.Context, key ledger.PartitionKey, row int, col ledger.Column, value string) error {
	id, err := s.idAt(ctx, key, row)
	if err != nil {
		return err
	}
	var column string
	var arg interface{}
	switch col {
	case ledger.ColTime:
		column, arg = "hora", value
	case ledger.ColCounterparty:
		column, arg = "proveedor", value
	case ledger.ColAmount:
		column, arg = "monto", value
	case ledger.ColPaid:
		v := 0
		if ledger.DecodePaid(value) {
			v = 1
		}
		column, arg = "pagado", v
	default:
		return core.ErrNoSuchRow
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE movements SET %s = ? WHERE id = ?`, column), arg, id)
	if err != nil {
		return fmt.Errorf("update movement %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, key ledger.PartitionKey, row int) error {
	id, err := s.idAt(ctx, key, row)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM movements WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete movement %d: %w", id, err)
	}
	return nil
}

// idAt maps a 1-based partition row position to the stable database id.
func (s *Store) idAt(ctx context.Context, key ledger.PartitionKey, row int) (int64, error) {
	if row < 1 {
		return 0, core.ErrNoSuchRow
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM movements WHERE partition = ? ORDER BY id LIMIT 1 OFFSET ?`,
		string(key), row-1).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, core.ErrNoSuchRow
	}
	if err != nil {
		return 0, fmt.Errorf("resolve row %d: %w", row, err)
	}
	return id, nil
}
