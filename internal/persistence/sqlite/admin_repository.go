package sqlite

import (
	"context"
	"strings"

	"github.com/example/ebilik/internal/persistence"
)

const adminColumns = `id, full_name, email, password_hash, role, is_active, created_at, updated_at`

// AdminRepository implements persistence.AdminRepository using SQLite.
type AdminRepository struct {
	pool *ConnectionPool
}

// NewAdminRepository creates a new SQLite admin roster repository.
func NewAdminRepository(pool *ConnectionPool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// CreateAdmin inserts a new roster entry.
func (r *AdminRepository) CreateAdmin(ctx context.Context, admin persistence.AdminUser) error {
	if admin.ID == "" || strings.TrimSpace(admin.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `INSERT INTO admin_users (`+adminColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		admin.ID,
		admin.FullName,
		admin.Email,
		admin.PasswordHash,
		admin.Role,
		admin.Active,
		formatTime(admin.CreatedAt),
		formatTime(admin.UpdatedAt),
	)
	return mapError(err)
}

// UpdateAdmin rewrites the mutable columns of a roster entry.
func (r *AdminRepository) UpdateAdmin(ctx context.Context, admin persistence.AdminUser) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE admin_users
		SET full_name = ?, email = ?, password_hash = ?, role = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		admin.FullName,
		admin.Email,
		admin.PasswordHash,
		admin.Role,
		admin.Active,
		formatTime(admin.UpdatedAt),
		admin.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

// GetAdmin retrieves a roster entry by ID.
func (r *AdminRepository) GetAdmin(ctx context.Context, id string) (persistence.AdminUser, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetAdminByEmail retrieves a roster entry by email address.
func (r *AdminRepository) GetAdminByEmail(ctx context.Context, email string) (persistence.AdminUser, error) {
	return r.getOne(ctx, `WHERE email = ?`, strings.TrimSpace(email))
}

func (r *AdminRepository) getOne(ctx context.Context, where, arg string) (persistence.AdminUser, error) {
	if arg == "" {
		return persistence.AdminUser{}, persistence.ErrNotFound
	}
	admin, err := scanAdmin(r.pool.DB().QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admin_users `+where, arg))
	if err != nil {
		return persistence.AdminUser{}, mapError(err)
	}
	return admin, nil
}

// ListAdmins returns the roster, newest first.
func (r *AdminRepository) ListAdmins(ctx context.Context) ([]persistence.AdminUser, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT `+adminColumns+` FROM admin_users ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var admins []persistence.AdminUser
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, mapError(err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return admins, nil
}

// DeleteAdmin removes a roster entry by ID.
func (r *AdminRepository) DeleteAdmin(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM admin_users WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func scanAdmin(row rowScanner) (persistence.AdminUser, error) {
	var (
		admin                persistence.AdminUser
		createdAt, updatedAt string
	)
	if err := row.Scan(&admin.ID, &admin.FullName, &admin.Email, &admin.PasswordHash, &admin.Role, &admin.Active, &createdAt, &updatedAt); err != nil {
		return persistence.AdminUser{}, err
	}

	var err error
	if admin.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.AdminUser{}, err
	}
	if admin.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.AdminUser{}, err
	}
	return admin, nil
}
