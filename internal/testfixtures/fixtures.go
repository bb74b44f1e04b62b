// Package testfixtures provides deterministic records, clocks and stores for tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/scheduler"
)

var (
	reservationCounter uint64
	userCounter        uint64
	adminCounter       uint64
	sessionCounter     uint64
)

// Monday 10 March 2025, 07:30 UTC.
var referenceTime = time.Date(2025, time.March, 10, 7, 30, 0, 0, time.UTC)

// ReferenceDate is the calendar date of ReferenceTime.
const ReferenceDate = "2025-03-10"

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReservationOption adjusts a reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservation returns a confirmed 09:00-10:00 booking of "Bilik Tayangan" on ReferenceDate.
// Each call gets a fresh ID and a creation time one minute after the previous fixture.
func NewReservation(opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	r := persistence.Reservation{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		UserID:    "user-001",
		UserName:  "Aisyah Rahman",
		Email:     "aisyah@example.com",
		RoomName:  "Bilik Tayangan",
		Date:      ReferenceDate,
		StartTime: "09:00",
		EndTime:   "10:00",
		Purpose:   "Science screening",
		FormLevel: 3,
		ClassName: "Ibnu Sina",
		Status:    scheduler.StatusConfirmed,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithReservationID overrides the ID.
func WithReservationID(id string) ReservationOption {
	return func(r *persistence.Reservation) { r.ID = id }
}

// InRoom books a different room.
func InRoom(room string) ReservationOption {
	return func(r *persistence.Reservation) { r.RoomName = room }
}

// OnDate books a different date.
func OnDate(date string) ReservationOption {
	return func(r *persistence.Reservation) { r.Date = date }
}

// Between sets the half-open interval [start, end).
func Between(start, end string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.StartTime = start
		r.EndTime = end
	}
}

// WithStatus sets the status.
func WithStatus(status string) ReservationOption {
	return func(r *persistence.Reservation) { r.Status = status }
}

// OwnedBy attributes the reservation to an account.
func OwnedBy(userID, name, email string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.UserID = userID
		r.UserName = name
		r.Email = email
	}
}

// WithPurpose sets the purpose text.
func WithPurpose(purpose string) ReservationOption {
	return func(r *persistence.Reservation) { r.Purpose = purpose }
}

// CreatedAt pins both timestamps.
func CreatedAt(t time.Time) ReservationOption {
	return func(r *persistence.Reservation) {
		r.CreatedAt = t
		r.UpdatedAt = t
	}
}

// Core projects a stored reservation onto the availability core's view.
func Core(r persistence.Reservation) scheduler.Reservation {
	return scheduler.Reservation{
		ID:        r.ID,
		Date:      r.Date,
		RoomName:  r.RoomName,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Status:    r.Status,
	}
}

// UserOption adjusts a user fixture.
type UserOption func(*persistence.User)

// NewUser returns a teacher account with a unique ID and email.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	u := persistence.User{
		ID:           fmt.Sprintf("user-%03d", idx),
		FullName:     fmt.Sprintf("User %03d", idx),
		Email:        fmt.Sprintf("user-%03d@example.com", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		UserType:     "teacher",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithUserID overrides the ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserEmail overrides the email.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserPasswordHash sets the stored hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(u *persistence.User) { u.PasswordHash = hash }
}

// AdminOption adjusts a roster fixture.
type AdminOption func(*persistence.AdminUser)

// NewAdmin returns an active admin with a unique ID and email.
func NewAdmin(opts ...AdminOption) persistence.AdminUser {
	idx := atomic.AddUint64(&adminCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	a := persistence.AdminUser{
		ID:           fmt.Sprintf("admin-%03d", idx),
		FullName:     fmt.Sprintf("Admin %03d", idx),
		Email:        fmt.Sprintf("admin-%03d@example.com", idx),
		PasswordHash: fmt.Sprintf("hash-admin-%03d", idx),
		Role:         "admin",
		Active:       true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// WithAdminID overrides the ID.
func WithAdminID(id string) AdminOption {
	return func(a *persistence.AdminUser) { a.ID = id }
}

// WithAdminEmail overrides the email.
func WithAdminEmail(email string) AdminOption {
	return func(a *persistence.AdminUser) { a.Email = email }
}

// AsSuperAdmin promotes the fixture.
func AsSuperAdmin() AdminOption {
	return func(a *persistence.AdminUser) { a.Role = "super_admin" }
}

// Inactive deactivates the fixture.
func Inactive() AdminOption {
	return func(a *persistence.AdminUser) { a.Active = false }
}

// WithAdminPasswordHash sets the stored hash.
func WithAdminPasswordHash(hash string) AdminOption {
	return func(a *persistence.AdminUser) { a.PasswordHash = hash }
}

// NewSession returns an unrevoked session for accountID that expires a day after ReferenceTime.
func NewSession(accountID, role string) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	return persistence.Session{
		ID:        fmt.Sprintf("session-%03d", idx),
		AccountID: accountID,
		Role:      role,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}
