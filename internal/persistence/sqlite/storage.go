// Package sqlite implements persistence.Store on SQLite through modernc.org/sqlite.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	*ReservationRepository
	*UserRepository
	*AdminRepository
	*SessionRepository

	pool *ConnectionPool
}

var _ persistence.Store = (*Storage)(nil)

// Open connects to the database described by config and applies pending migrations.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	runner := migration.NewRunner(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(pool.DB()),
		logger,
	)
	if err := runner.Run(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("sqlite: apply migrations: %w", err)
	}

	return &Storage{
		ReservationRepository: NewReservationRepository(pool),
		UserRepository:        NewUserRepository(pool),
		AdminRepository:       NewAdminRepository(pool),
		SessionRepository:     NewSessionRepository(pool),
		pool:                  pool,
	}, nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
