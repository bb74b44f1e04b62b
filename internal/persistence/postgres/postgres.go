// Package postgres implements persistence.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/ebilik/internal/persistence"
)

//go:embed schema.sql
var schemaSQL string

// Store is a pgxpool-backed persistence.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ persistence.Store = (*Store)(nil)

// Open connects to databaseURL, pings it and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.Message)
		case "23502", "23503", "23514":
			return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.Message)
		}
	}
	return err
}

func expectOneRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// --- ReservationRepository implementation ---

const reservationColumns = `id, user_id, user_name, email, room_name, date, start_time, end_time,
	purpose, form_level, class_name, status, created_at, updated_at`

// CreateReservation inserts a new reservation.
func (s *Store) CreateReservation(ctx context.Context, r persistence.Reservation) error {
	if r.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.ID, r.UserID, r.UserName, r.Email, r.RoomName, r.Date, r.StartTime, r.EndTime,
		r.Purpose, r.FormLevel, r.ClassName, r.Status, r.CreatedAt, r.UpdatedAt)
	return mapError(err)
}

// UpdateReservation rewrites every mutable column of an existing reservation.
func (s *Store) UpdateReservation(ctx context.Context, r persistence.Reservation) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reservations
		SET user_id = $2, user_name = $3, email = $4, room_name = $5, date = $6, start_time = $7, end_time = $8,
			purpose = $9, form_level = $10, class_name = $11, status = $12, updated_at = $13
		WHERE id = $1`,
		r.ID, r.UserID, r.UserName, r.Email, r.RoomName, r.Date, r.StartTime, r.EndTime,
		r.Purpose, r.FormLevel, r.ClassName, r.Status, r.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

// GetReservation retrieves a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	reservation, err := pgx.CollectExactlyOneRow(rows, scanReservation)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// ListReservations returns every reservation, newest first.
func (s *Store) ListReservations(ctx context.Context) ([]persistence.Reservation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	reservations, err := pgx.CollectRows(rows, scanReservation)
	if err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

// DeleteReservation removes a reservation by ID.
func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func scanReservation(row pgx.CollectableRow) (persistence.Reservation, error) {
	var r persistence.Reservation
	err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.Email, &r.RoomName, &r.Date, &r.StartTime, &r.EndTime,
		&r.Purpose, &r.FormLevel, &r.ClassName, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
