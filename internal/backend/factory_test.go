package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"caja/internal/config"
	"caja/internal/ledger/memory"
	"caja/internal/ledger/sqlite"
	"caja/internal/log"
)

func testConfig() *config.Config {
	return &config.Config{
		DataBackend:   "memory",
		CacheTTL:      5 * time.Minute,
		GuardCapacity: 5,
		GuardWindow:   time.Minute,
		QueueCapacity: 64,
		Timezone:      "UTC",
	}
}

func TestNewStoreMemory(t *testing.T) {
	store, closeStore, err := NewStore(context.Background(), testConfig(), log.New(log.DefaultConfig()))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("store = %T, want *memory.Store", store)
	}
}

func TestNewStoreSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "caja.db")

	store, closeStore, err := NewStore(context.Background(), cfg, log.New(log.DefaultConfig()))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("store = %T, want *sqlite.Store", store)
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.DataBackend = "postgres"
	if _, _, err := NewStore(context.Background(), cfg, log.New(log.DefaultConfig())); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
