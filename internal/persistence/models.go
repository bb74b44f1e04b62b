package persistence

import "time"

// Reservation is a room booking as stored.
type Reservation struct {
	ID        string
	UserID    string
	UserName  string
	Email     string
	RoomName  string
	Date      string
	StartTime string
	EndTime   string
	Purpose   string
	FormLevel int
	ClassName string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a self-registered regular account.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	UserType     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminUser is a roster entry; Role is "admin" or "super_admin".
type AdminUser struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an account.
type Session struct {
	ID        string
	AccountID string
	Role      string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
