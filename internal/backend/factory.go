// Package backend selects and constructs the ledger store named by the
// configuration.
package backend

import (
	"context"
	"fmt"

	"caja/internal/config"
	"caja/internal/ledger"
	"caja/internal/ledger/google"
	"caja/internal/ledger/memory"
	"caja/internal/ledger/sqlite"
	"caja/internal/log"
)

// NewStore builds the configured ledger store. The returned closer is a
// no-op for backends without resources to release.
func NewStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (ledger.Store, func() error, error) {
	logger = logger.WithComponent(log.ComponentBackend)
	noop := func() error { return nil }

	switch cfg.DataBackend {
	case "memory":
		logger.InfoContext(ctx, "using in-memory store, data will not survive restarts")
		return memory.New(), noop, nil

	case "sqlite":
		store, err := sqlite.New(cfg.SQLiteDBPath, cfg.Location())
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.InfoContext(ctx, "using sqlite store", "path", cfg.SQLiteDBPath)
		return store, store.Close, nil

	case "sheets":
		store, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			Location:        cfg.Location(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open sheets store: %w", err)
		}
		logger.InfoContext(ctx, "using google sheets store", "spreadsheet", cfg.GoogleSpreadsheetID)
		return store, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
