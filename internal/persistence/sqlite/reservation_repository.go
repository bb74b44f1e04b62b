package sqlite

import (
	"context"
	"strings"

	"github.com/example/ebilik/internal/persistence"
)

const reservationColumns = `id, user_id, user_name, email, room_name, date, start_time, end_time,
	purpose, form_level, class_name, status, created_at, updated_at`

// ReservationRepository implements persistence.ReservationRepository using SQLite.
type ReservationRepository struct {
	pool *ConnectionPool
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// CreateReservation inserts a new reservation.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if strings.TrimSpace(reservation.ID) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.pool.DB().ExecContext(ctx, query,
		reservation.ID,
		reservation.UserID,
		reservation.UserName,
		reservation.Email,
		reservation.RoomName,
		reservation.Date,
		reservation.StartTime,
		reservation.EndTime,
		reservation.Purpose,
		reservation.FormLevel,
		reservation.ClassName,
		reservation.Status,
		formatTime(reservation.CreatedAt),
		formatTime(reservation.UpdatedAt),
	)
	return mapError(err)
}

// UpdateReservation rewrites every mutable column of an existing reservation.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	query := `
		UPDATE reservations
		SET user_id = ?, user_name = ?, email = ?, room_name = ?, date = ?, start_time = ?, end_time = ?,
			purpose = ?, form_level = ?, class_name = ?, status = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.pool.DB().ExecContext(ctx, query,
		reservation.UserID,
		reservation.UserName,
		reservation.Email,
		reservation.RoomName,
		reservation.Date,
		reservation.StartTime,
		reservation.EndTime,
		reservation.Purpose,
		reservation.FormLevel,
		reservation.ClassName,
		reservation.Status,
		formatTime(reservation.UpdatedAt),
		reservation.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// ListReservations returns every reservation, newest first.
func (r *ReservationRepository) ListReservations(ctx context.Context) ([]persistence.Reservation, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, mapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

// DeleteReservation removes a reservation by ID.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation          persistence.Reservation
		createdAt, updatedAt string
	)
	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.UserName,
		&reservation.Email,
		&reservation.RoomName,
		&reservation.Date,
		&reservation.StartTime,
		&reservation.EndTime,
		&reservation.Purpose,
		&reservation.FormLevel,
		&reservation.ClassName,
		&reservation.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	if reservation.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}
