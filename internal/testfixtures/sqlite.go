package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/campus-yoga/internal/persistence"
	"github.com/example/campus-yoga/internal/persistence/sqlstore"
)

// SQLiteHarness provides repository access backed by a temporary SQLite database
// for integration-style tests. The "rec" building is always present.
type SQLiteHarness struct {
	Store         *sqlstore.Store
	Buildings     persistence.BuildingRepository
	Series        persistence.SeriesRepository
	Classes       persistence.ClassRepository
	Registrations persistence.RegistrationRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated and seeded automatically. Callers may optionally invoke Close, but the
// helper also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB, opts ...sqlstore.Option) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(tb.TempDir(), "yoga.db")

	store, err := sqlstore.Open(ctx, dsn, opts...)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	rec := NewBuildingFixture("rec")
	rec.Name = "Recreation Center"
	if _, err := store.SeedBuildings(ctx, []persistence.Building{rec.Persistence()}); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to seed buildings: %v", err)
	}

	harness := &SQLiteHarness{
		Store:         store,
		Buildings:     store,
		Series:        store,
		Classes:       store,
		Registrations: store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
