package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/ebilik/internal/persistence"
)

// UserService manages the directory of regular users.
type UserService struct {
	users       persistence.UserRepository
	admins      persistence.AdminRepository
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService constructs a UserService. The admin repository, when given, keeps emails
// unique across both account kinds so the unified login stays unambiguous.
func NewUserService(users persistence.UserRepository, admins persistence.AdminRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		admins:      admins,
		hash:        hash,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register creates a regular user account.
func (s *UserService) Register(ctx context.Context, params RegisterUserParams) (user RegularUser, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("UserService is not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	fullName := strings.TrimSpace(params.FullName)
	userType := strings.ToLower(strings.TrimSpace(params.UserType))

	vErr := validateIdentity(fullName, email, params.Password)
	switch userType {
	case UserTypeTeacher, UserTypeStaff, UserTypeStudent:
	default:
		vErr.Add("user_type", "user type must be teacher, staff or student")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.admins != nil {
		if err = ensureEmailFree(ctx, s.admins.GetAdminByEmail, email); err != nil {
			return
		}
	}

	var hashed string
	if hashed, err = s.hash(params.Password); err != nil {
		return
	}

	now := s.now()
	record := persistence.User{
		ID:           s.idGenerator(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hashed,
		UserType:     userType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.users.CreateUser(ctx, record); err != nil {
		err = mapRepoError(err)
		return
	}

	user = userFromRecord(record)
	return
}

// ListUsers returns the directory, newest first. Super admins only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users []RegularUser, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("UserService is not configured")
		return
	}
	if !principal.IsSuperAdmin() {
		err = ErrUnauthorized
		return
	}

	var records []persistence.User
	records, err = s.users.ListUsers(ctx)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListUsers", "principal_id", principal.AccountID).
			ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
		return
	}

	users = make([]RegularUser, 0, len(records))
	for _, r := range records {
		users = append(users, userFromRecord(r))
	}
	return
}

func validateIdentity(fullName, email, password string) *ValidationError {
	vErr := &ValidationError{}
	if fullName == "" {
		vErr.Add("full_name", "full name is required")
	}
	if email == "" {
		vErr.Add("email", "email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		vErr.Add("email", "email is not a valid address")
	}
	if len(password) < MinPasswordLength {
		vErr.Add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return vErr
}

// ensureEmailFree returns ErrAlreadyExists when lookup finds email.
func ensureEmailFree[T any](ctx context.Context, lookup func(context.Context, string) (T, error), email string) error {
	_, err := lookup(ctx, email)
	if err == nil {
		return ErrAlreadyExists
	}
	if mapped := mapRepoError(err); !errors.Is(mapped, ErrNotFound) {
		return mapped
	}
	return nil
}
