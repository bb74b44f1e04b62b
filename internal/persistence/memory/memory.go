// Package memory provides an in-process persistence.Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/ebilik/internal/persistence"
)

// Storage keeps every record in maps guarded by a single RWMutex.
type Storage struct {
	mu           sync.RWMutex
	reservations map[string]persistence.Reservation
	users        map[string]persistence.User
	admins       map[string]persistence.AdminUser
	sessions     map[string]persistence.Session
}

var _ persistence.Store = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		reservations: make(map[string]persistence.Reservation),
		users:        make(map[string]persistence.User),
		admins:       make(map[string]persistence.AdminUser),
		sessions:     make(map[string]persistence.Session),
	}
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// --- ReservationRepository implementation ---

// CreateReservation stores a new reservation.
func (s *Storage) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[reservation.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.reservations[reservation.ID] = reservation
	return nil
}

// UpdateReservation replaces an existing reservation.
func (s *Storage) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[reservation.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.reservations[reservation.ID] = reservation
	return nil
}

// GetReservation retrieves a reservation by ID.
func (s *Storage) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

// ListReservations returns every reservation ordered by CreatedAt descending.
func (s *Storage) ListReservations(ctx context.Context) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]persistence.Reservation, 0, len(s.reservations))
	for _, reservation := range s.reservations {
		reservations = append(reservations, reservation)
	}

	sort.Slice(reservations, func(i, j int) bool {
		if reservations[i].CreatedAt.Equal(reservations[j].CreatedAt) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].CreatedAt.After(reservations[j].CreatedAt)
	})

	return reservations, nil
}

// DeleteReservation removes a reservation by ID.
func (s *Storage) DeleteReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new regular user.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == lower {
			return persistence.ErrDuplicate
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if strings.ToLower(user.Email) == lower {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by CreatedAt descending.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	return users, nil
}

// DeleteUser removes a user by ID.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// --- AdminRepository implementation ---

// CreateAdmin stores a new roster entry.
func (s *Storage) CreateAdmin(ctx context.Context, admin persistence.AdminUser) error {
	if admin.ID == "" || strings.TrimSpace(admin.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.ID]; ok {
		return persistence.ErrDuplicate
	}
	if err := s.ensureUniqueAdminEmailLocked(admin.ID, admin.Email); err != nil {
		return err
	}

	s.admins[admin.ID] = admin
	return nil
}

// UpdateAdmin replaces an existing roster entry.
func (s *Storage) UpdateAdmin(ctx context.Context, admin persistence.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueAdminEmailLocked(admin.ID, admin.Email); err != nil {
		return err
	}

	s.admins[admin.ID] = admin
	return nil
}

// GetAdmin retrieves a roster entry by ID.
func (s *Storage) GetAdmin(ctx context.Context, id string) (persistence.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[id]
	if !ok {
		return persistence.AdminUser{}, persistence.ErrNotFound
	}
	return admin, nil
}

// GetAdminByEmail retrieves a roster entry by email address, case-insensitively.
func (s *Storage) GetAdminByEmail(ctx context.Context, email string) (persistence.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, admin := range s.admins {
		if strings.ToLower(admin.Email) == lower {
			return admin, nil
		}
	}
	return persistence.AdminUser{}, persistence.ErrNotFound
}

// ListAdmins returns the roster ordered by CreatedAt descending.
func (s *Storage) ListAdmins(ctx context.Context) ([]persistence.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admins := make([]persistence.AdminUser, 0, len(s.admins))
	for _, admin := range s.admins {
		admins = append(admins, admin)
	}

	sort.Slice(admins, func(i, j int) bool {
		if admins[i].CreatedAt.Equal(admins[j].CreatedAt) {
			return admins[i].ID < admins[j].ID
		}
		return admins[i].CreatedAt.After(admins[j].CreatedAt)
	})

	return admins, nil
}

// DeleteAdmin removes a roster entry by ID.
func (s *Storage) DeleteAdmin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.admins, id)
	return nil
}

func (s *Storage) ensureUniqueAdminEmailLocked(id, email string) error {
	lower := strings.ToLower(email)
	for existingID, admin := range s.admins {
		if existingID == id {
			continue
		}
		if strings.ToLower(admin.Email) == lower {
			return persistence.ErrDuplicate
		}
	}
	return nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session keyed by token.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.AccountID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	s.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (s *Storage) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// UpdateSession replaces an existing session.
func (s *Storage) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	s.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// RevokeSession marks the session as revoked at the supplied instant.
func (s *Storage) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	session.UpdatedAt = revoked
	s.sessions[token] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions drops sessions that expired at or before reference.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func cloneSession(session persistence.Session) persistence.Session {
	if session.RevokedAt != nil {
		revoked := *session.RevokedAt
		session.RevokedAt = &revoked
	}
	return session
}
