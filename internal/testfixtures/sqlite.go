package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/agenda-booking/internal/persistence"
	"github.com/example/agenda-booking/internal/persistence/sqlite"
)

// SQLiteHarness exposes the repositories of a migrated, throwaway database.
type SQLiteHarness struct {
	Agendas      persistence.AgendaRepository
	Services     persistence.ServiceRepository
	Addresses    persistence.AddressRepository
	Appointments persistence.AppointmentRepository
	Users        persistence.UserRepository
	Sessions     persistence.SessionRepository
}

// NewSQLiteHarness opens a database file under tb.TempDir, applies the
// embedded migrations and closes it when the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	storage, err := sqlite.Open(filepath.Join(tb.TempDir(), "agenda.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	if err := storage.Ping(context.Background()); err != nil {
		tb.Fatalf("ping sqlite: %v", err)
	}

	return &SQLiteHarness{
		Agendas:      storage.Agendas,
		Services:     storage.Services,
		Addresses:    storage.Addresses,
		Appointments: storage.Appointments,
		Users:        storage.Users,
		Sessions:     storage.Sessions,
	}
}
