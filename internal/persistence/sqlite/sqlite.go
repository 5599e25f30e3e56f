// Package sqlite implements the persistence repositories on top of
// modernc.org/sqlite through database/sql.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/agenda-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage owns the connection pool and exposes one repository per aggregate.
type Storage struct {
	pool *ConnectionPool

	Agendas      *AgendaRepository
	Services     *ServiceRepository
	Addresses    *AddressRepository
	Appointments *AppointmentRepository
	Users        *UserRepository
	Sessions     *SessionRepository
}

// Open connects to the database at dsn using the production configuration.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn))
}

// OpenWithConfig connects using an explicit SQLite configuration.
func OpenWithConfig(config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:         pool,
		Agendas:      NewAgendaRepository(pool),
		Services:     NewServiceRepository(pool),
		Addresses:    NewAddressRepository(pool),
		Appointments: NewAppointmentRepository(pool),
		Users:        NewUserRepository(pool),
		Sessions:     NewSessionRepository(pool),
	}, nil
}

// Ping checks that the database still answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	return s.MigrateWithLogger(ctx, nil)
}

// MigrateWithLogger applies the embedded schema migrations, logging progress.
func (s *Storage) MigrateWithLogger(ctx context.Context, logger *slog.Logger) error {
	files, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: open embedded migrations: %w", err)
	}
	manager := migration.NewManager(migration.NewFSScanner(files), migration.NewSQLiteExecutor(s.pool.DB()), logger)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}
