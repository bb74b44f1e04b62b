package persistence

import (
	"context"
	"time"
)

// ReservationRepository is the reservation store capability. ListReservations returns the
// full set with no filtering contract; callers scope it themselves.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

// UserRepository exposes CRUD operations for regular users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// AdminRepository exposes CRUD operations for the admin roster.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin AdminUser) error
	UpdateAdmin(ctx context.Context, admin AdminUser) error
	GetAdmin(ctx context.Context, id string) (AdminUser, error)
	GetAdminByEmail(ctx context.Context, email string) (AdminUser, error)
	ListAdmins(ctx context.Context) ([]AdminUser, error)
	DeleteAdmin(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Store bundles every repository a backend provides.
type Store interface {
	ReservationRepository
	UserRepository
	AdminRepository
	SessionRepository
	Ping(ctx context.Context) error
	Close() error
}
