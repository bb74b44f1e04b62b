package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/ebilik/internal/persistence"
)

// --- UserRepository implementation ---

const userColumns = `id, full_name, email, password_hash, user_type, created_at, updated_at`

// CreateUser inserts a new regular user.
func (s *Store) CreateUser(ctx context.Context, u persistence.User) error {
	if u.ID == "" || strings.TrimSpace(u.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.FullName, u.Email, u.PasswordHash, u.UserType, u.CreatedAt, u.UpdatedAt)
	return mapError(err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return s.getUser(ctx, `WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

func (s *Store) getUser(ctx context.Context, where, arg string) (persistence.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	user, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// ListUsers returns all users, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func scanUser(row pgx.CollectableRow) (persistence.User, error) {
	var u persistence.User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.UserType, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// --- AdminRepository implementation ---

const adminColumns = `id, full_name, email, password_hash, role, is_active, created_at, updated_at`

// CreateAdmin inserts a new roster entry.
func (s *Store) CreateAdmin(ctx context.Context, a persistence.AdminUser) error {
	if a.ID == "" || strings.TrimSpace(a.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO admin_users (`+adminColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.FullName, a.Email, a.PasswordHash, a.Role, a.Active, a.CreatedAt, a.UpdatedAt)
	return mapError(err)
}

// UpdateAdmin rewrites the mutable columns of a roster entry.
func (s *Store) UpdateAdmin(ctx context.Context, a persistence.AdminUser) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE admin_users
		SET full_name = $2, email = $3, password_hash = $4, role = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		a.ID, a.FullName, a.Email, a.PasswordHash, a.Role, a.Active, a.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

// GetAdmin retrieves a roster entry by ID.
func (s *Store) GetAdmin(ctx context.Context, id string) (persistence.AdminUser, error) {
	return s.getAdmin(ctx, `WHERE id = $1`, id)
}

// GetAdminByEmail retrieves a roster entry by email address, case-insensitively.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (persistence.AdminUser, error) {
	return s.getAdmin(ctx, `WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

func (s *Store) getAdmin(ctx context.Context, where, arg string) (persistence.AdminUser, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+adminColumns+` FROM admin_users `+where, arg)
	if err != nil {
		return persistence.AdminUser{}, mapError(err)
	}
	admin, err := pgx.CollectExactlyOneRow(rows, scanAdmin)
	if err != nil {
		return persistence.AdminUser{}, mapError(err)
	}
	return admin, nil
}

// ListAdmins returns the roster, newest first.
func (s *Store) ListAdmins(ctx context.Context) ([]persistence.AdminUser, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+adminColumns+` FROM admin_users ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	admins, err := pgx.CollectRows(rows, scanAdmin)
	if err != nil {
		return nil, mapError(err)
	}
	return admins, nil
}

// DeleteAdmin removes a roster entry by ID.
func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func scanAdmin(row pgx.CollectableRow) (persistence.AdminUser, error) {
	var a persistence.AdminUser
	err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.PasswordHash, &a.Role, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// --- SessionRepository implementation ---

const sessionColumns = `id, account_id, role, token, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session token for an account.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.AccountID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.AccountID, session.Role, session.Token, session.ExpiresAt, session.RevokedAt,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by its token value.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, strings.TrimSpace(token))
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	session, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// UpdateSession updates the expiry and revocation of an existing session.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE sessions SET expires_at = $2, revoked_at = $3, updated_at = $4
		WHERE token = $1
		RETURNING `+sessionColumns,
		session.Token, session.ExpiresAt, session.RevokedAt, session.UpdatedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	updated, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return updated, nil
}

// RevokeSession marks a session as revoked based on its token value.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE sessions SET revoked_at = $2, updated_at = $2
		WHERE token = $1
		RETURNING `+sessionColumns,
		strings.TrimSpace(token), revokedAt.UTC())
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	revoked, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return revoked, nil
}

// DeleteExpiredSessions drops sessions that expired at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, reference)
	return mapError(err)
}

func scanSession(row pgx.CollectableRow) (persistence.Session, error) {
	var session persistence.Session
	err := row.Scan(&session.ID, &session.AccountID, &session.Role, &session.Token, &session.ExpiresAt,
		&session.RevokedAt, &session.CreatedAt, &session.UpdatedAt)
	return session, err
}
