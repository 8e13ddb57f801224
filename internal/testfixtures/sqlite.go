package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/facility-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary migrated
// SQLite database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Spaces       *sqlite.SpaceRepository
	Reservations *sqlite.ReservationRepository
	Rentals      *sqlite.RentalRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary database file
// that is migrated automatically. A cleanup callback is registered with the
// provided testing.TB, so calling Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	pool, err := sqlite.NewConnectionPool("file:" + path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := sqlite.NewMigrator(pool).RunMigrations(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:         pool,
		Spaces:       sqlite.NewSpaceRepository(pool),
		Reservations: sqlite.NewReservationRepository(pool),
		Rentals:      sqlite.NewRentalRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
