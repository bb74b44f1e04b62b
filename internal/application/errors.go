package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute such as an email is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when a login or session token does not check out.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a deactivated admin attempts to act.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token has been logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrSlotUnavailable is returned when a booking collides with an existing reservation.
	ErrSlotUnavailable = errors.New("application: slot unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error. The first message recorded for a field wins.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.Add(field, msg)
	}
}

// SlotUnavailableError explains which reservations block a booking. It matches ErrSlotUnavailable.
type SlotUnavailableError struct {
	Conflicts []scheduler.Conflict
}

// Error implements the error interface.
func (e *SlotUnavailableError) Error() string {
	if e == nil || len(e.Conflicts) == 0 {
		return ErrSlotUnavailable.Error()
	}
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s-%s", c.RoomName, c.StartTime, c.EndTime))
	}
	return fmt.Sprintf("%s: overlaps %s", ErrSlotUnavailable.Error(), strings.Join(parts, ", "))
}

// Unwrap exposes the sentinel for errors.Is.
func (e *SlotUnavailableError) Unwrap() error {
	return ErrSlotUnavailable
}

// mapRepoError translates persistence sentinels into application sentinels.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{FieldErrors: map[string]string{"record": "violates a storage constraint"}}
	default:
		return err
	}
}
