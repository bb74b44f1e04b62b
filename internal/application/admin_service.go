package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/ebilik/internal/persistence"
)

// ReservationCounter supplies reservation totals for the overview.
type ReservationCounter interface {
	Stats(ctx context.Context) (ReservationStats, error)
}

// AdminService manages the admin roster. Every mutation requires a super admin.
type AdminService struct {
	admins      persistence.AdminRepository
	users       persistence.UserRepository
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(admins persistence.AdminRepository, users persistence.UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AdminService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AdminService{
		admins:      admins,
		users:       users,
		hash:        hash,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AdminService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AdminService", operation, attrs...)
}

func (s *AdminService) ready() error {
	if s == nil || s.admins == nil {
		return fmt.Errorf("AdminService is not configured")
	}
	return nil
}

// ListAdmins returns the roster, newest first.
func (s *AdminService) ListAdmins(ctx context.Context, principal Principal) (accounts []Account, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if !principal.IsSuperAdmin() {
		err = ErrUnauthorized
		return
	}

	var records []persistence.AdminUser
	if records, err = s.admins.ListAdmins(ctx); err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListAdmins", "principal_id", principal.AccountID).
			ErrorContext(ctx, "failed to list admins", "error", err, "error_kind", ErrorKind(err))
		return
	}

	accounts = make([]Account, 0, len(records))
	for _, r := range records {
		accounts = append(accounts, adminFromRecord(r))
	}
	return
}

// AddAdmin puts a new active admin or super admin on the roster.
func (s *AdminService) AddAdmin(ctx context.Context, params AddAdminParams) (account Account, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "AddAdmin",
		"principal_id", params.Principal.AccountID,
		"email", email,
		"role", string(params.Role),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add admin", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("admin_id", account.AccountID()).InfoContext(ctx, "admin added")
	}()

	if !params.Principal.IsSuperAdmin() {
		err = ErrUnauthorized
		return
	}

	role := params.Role
	if role == "" {
		role = RoleAdmin
	}
	fullName := strings.TrimSpace(params.FullName)
	vErr := validateIdentity(fullName, email, params.Password)
	if !role.Staff() {
		vErr.Add("role", "role must be admin or super_admin")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	account, err = s.create(ctx, fullName, email, params.Password, role)
	return
}

func (s *AdminService) create(ctx context.Context, fullName, email, password string, role Role) (Account, error) {
	if s.users != nil {
		if err := ensureEmailFree(ctx, s.users.GetUserByEmail, email); err != nil {
			return nil, err
		}
	}

	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := persistence.AdminUser{
		ID:           s.idGenerator(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hashed,
		Role:         string(role),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.admins.CreateAdmin(ctx, record); err != nil {
		return nil, mapRepoError(err)
	}
	return adminFromRecord(record), nil
}

// SetActive enables or disables a roster entry. A super admin cannot disable themself.
func (s *AdminService) SetActive(ctx context.Context, principal Principal, adminID string, active bool) (account Account, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SetActive",
		"principal_id", principal.AccountID,
		"admin_id", adminID,
		"active", active,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to toggle admin", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "admin toggled")
	}()

	if !principal.IsSuperAdmin() {
		err = ErrUnauthorized
		return
	}
	if adminID == principal.AccountID && !active {
		err = &ValidationError{FieldErrors: map[string]string{"active": "you cannot deactivate your own account"}}
		return
	}

	var record persistence.AdminUser
	if record, err = s.admins.GetAdmin(ctx, adminID); err != nil {
		err = mapRepoError(err)
		return
	}

	if record.Active != active {
		record.Active = active
		record.UpdatedAt = s.now()
		if err = s.admins.UpdateAdmin(ctx, record); err != nil {
			err = mapRepoError(err)
			return
		}
	}
	account = adminFromRecord(record)
	return
}

// DeleteAdmin removes a roster entry. A super admin cannot delete themself.
func (s *AdminService) DeleteAdmin(ctx context.Context, principal Principal, adminID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !principal.IsSuperAdmin() {
		return ErrUnauthorized
	}
	if adminID == principal.AccountID {
		return &ValidationError{FieldErrors: map[string]string{"id": "you cannot delete your own account"}}
	}

	logger := s.loggerWith(ctx, "DeleteAdmin",
		"principal_id", principal.AccountID,
		"admin_id", adminID,
	)
	if err := s.admins.DeleteAdmin(ctx, adminID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete admin", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "admin deleted")
	return nil
}

// EnsureSuperAdmin seeds the roster with a super admin when it is empty. It reports whether
// an account was created.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, fullName, email, password string) (created bool, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "EnsureSuperAdmin", "email", email)

	var roster []persistence.AdminUser
	if roster, err = s.admins.ListAdmins(ctx); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to read roster", "error", err, "error_kind", ErrorKind(err))
		return
	}
	if len(roster) > 0 {
		return false, nil
	}

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = "Super Admin"
	}
	if vErr := validateIdentity(fullName, email, password); vErr.HasErrors() {
		err = vErr
		logger.ErrorContext(ctx, "bootstrap credentials rejected", "error", err, "fields", vErr.FieldErrors)
		return
	}

	var account Account
	if account, err = s.create(ctx, fullName, email, password, RoleSuperAdmin); err != nil {
		logger.ErrorContext(ctx, "failed to seed super admin", "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.With("admin_id", account.AccountID()).InfoContext(ctx, "super admin seeded")
	return true, nil
}

// Overview totals reservations, admins and users. Super admins only.
func (s *AdminService) Overview(ctx context.Context, principal Principal, reservations ReservationCounter) (stats DashboardStats, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if !principal.IsSuperAdmin() {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "Overview", "principal_id", principal.AccountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build overview", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if reservations != nil {
		if stats.Reservations, err = reservations.Stats(ctx); err != nil {
			return
		}
	}

	var roster []persistence.AdminUser
	if roster, err = s.admins.ListAdmins(ctx); err != nil {
		err = mapRepoError(err)
		return
	}
	stats.Admins = len(roster)

	if s.users != nil {
		var users []persistence.User
		if users, err = s.users.ListUsers(ctx); err != nil {
			err = mapRepoError(err)
			return
		}
		stats.Users = len(users)
	}
	return
}
