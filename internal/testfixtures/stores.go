package testfixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/persistence/memory"
	"github.com/example/ebilik/internal/persistence/sqlite"
	"github.com/example/ebilik/internal/persistence/sqlite/migration"
)

// StoreFactory opens a fresh, empty store for one test.
type StoreFactory func(tb testing.TB) persistence.Store

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(tb testing.TB) persistence.Store {
	tb.Helper()
	store := memory.New()
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// NewSQLiteStore opens a migrated SQLite database under tb.TempDir and closes it on cleanup.
func NewSQLiteStore(tb testing.TB) persistence.Store {
	tb.Helper()

	cfg := migration.TempFileTestSQLiteConfig(filepath.Join(tb.TempDir(), "ebilik.db"))
	storage, err := sqlite.Open(context.Background(), cfg, nil)
	if err != nil {
		tb.Fatalf("failed to open sqlite storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })
	return storage
}

// StoreFactories lists the stores every contract test runs against. Postgres joins the set
// when EBILIK_TEST_POSTGRES_DSN is set.
func StoreFactories() map[string]StoreFactory {
	factories := map[string]StoreFactory{
		"memory": NewMemoryStore,
		"sqlite": NewSQLiteStore,
	}
	if os.Getenv(PostgresDSNEnv) != "" {
		factories["postgres"] = NewPostgresStore
	}
	return factories
}

// Seed inserts reservations into store, failing the test on error.
func Seed(tb testing.TB, store persistence.ReservationRepository, reservations ...persistence.Reservation) {
	tb.Helper()
	for _, r := range reservations {
		if err := store.CreateReservation(context.Background(), r); err != nil {
			tb.Fatalf("seed reservation %s: %v", r.ID, err)
		}
	}
}
