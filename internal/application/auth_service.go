package application

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/ebilik/internal/persistence"
)

// AuthService runs the unified login and resolves session tokens to principals.
type AuthService struct {
	admins         persistence.AdminRepository
	users          persistence.UserRepository
	sessions       persistence.SessionRepository
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	tokenDigest    func(string) string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// AuthDeps groups the collaborators of an AuthService. Nil functions get production defaults.
// TokenDigest maps a bearer token to the key stored in the session repository; the default
// stores tokens as issued.
type AuthDeps struct {
	Admins         persistence.AdminRepository
	Users          persistence.UserRepository
	Sessions       persistence.SessionRepository
	VerifyPassword PasswordVerifier
	IDGenerator    func() string
	TokenGenerator func() string
	TokenDigest    func(string) string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(deps AuthDeps) *AuthService {
	if deps.VerifyPassword == nil {
		deps.VerifyPassword = VerifyPassword
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = NewSessionToken
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuid.NewString
	}
	if deps.TokenDigest == nil {
		deps.TokenDigest = func(token string) string { return token }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	return &AuthService{
		admins:         deps.Admins,
		users:          deps.Users,
		sessions:       deps.Sessions,
		verifyPassword: deps.VerifyPassword,
		idGenerator:    deps.IDGenerator,
		tokenGenerator: deps.TokenGenerator,
		tokenDigest:    deps.TokenDigest,
		now:            deps.Now,
		sessionTTL:     deps.SessionTTL,
		logger:         defaultLogger(deps.Logger),
	}
}

// NewSessionToken returns 32 random bytes, hex encoded.
func NewSessionToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("application: read random token: %v", err))
	}
	return hex.EncodeToString(buf)
}

// HMACTokenDigest keys session storage by hex HMAC-SHA256(secret, token).
func HMACTokenDigest(secret string) func(string) string {
	key := []byte(secret)
	return func(token string) string {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(token))
		return hex.EncodeToString(mac.Sum(nil))
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) ready() error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.admins == nil || s.users == nil || s.sessions == nil {
		return fmt.Errorf("AuthService is not configured")
	}
	return nil
}

// Login checks the admin roster first, then the user directory, and issues a session.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"account_id", result.Account.AccountID(),
			"role", string(result.Account.AccountRole()),
			"session_id", result.Session.ID,
		).InfoContext(ctx, "login succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var account Account
	if account, err = s.authenticate(ctx, email, params.Password); err != nil {
		return
	}

	now := s.now()
	if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}

	token := s.tokenGenerator()
	record := persistence.Session{
		ID:        s.idGenerator(),
		AccountID: account.AccountID(),
		Role:      string(account.AccountRole()),
		Token:     s.tokenDigest(token),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if record, err = s.sessions.CreateSession(ctx, record); err != nil {
		err = mapRepoError(err)
		return
	}

	session := sessionFromRecord(record)
	session.Token = token
	result = LoginResult{Account: account, Session: session}
	return
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (Account, error) {
	admin, err := s.admins.GetAdminByEmail(ctx, email)
	switch {
	case err == nil:
		if s.verifyPassword(admin.PasswordHash, password) != nil {
			return nil, ErrInvalidCredentials
		}
		if !admin.Active {
			return nil, ErrAccountDisabled
		}
		return adminFromRecord(admin), nil
	case !errors.Is(err, persistence.ErrNotFound):
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if s.verifyPassword(user.PasswordHash, password) != nil {
		return nil, ErrInvalidCredentials
	}
	return userFromRecord(user), nil
}

// Logout revokes the session identified by token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.ready(); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "Logout")
	if _, err := s.sessions.RevokeSession(ctx, s.tokenDigest(token), s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		logger.WarnContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession resolves token to the principal that owns it.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if err = s.ready(); err != nil {
		return
	}

	token = strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "session validated", "principal_id", principal.AccountID)
	}()

	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	var session persistence.Session
	if session, err = s.sessions.GetSession(ctx, s.tokenDigest(token)); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(s.now()) {
		err = ErrSessionExpired
		return
	}

	var account Account
	if account, err = s.lookupAccount(ctx, session.AccountID, Role(session.Role)); err != nil {
		return
	}

	principal = Principal{
		AccountID: account.AccountID(),
		Role:      account.AccountRole(),
		Name:      account.DisplayName(),
		Email:     account.ContactEmail(),
	}
	return
}

func (s *AuthService) lookupAccount(ctx context.Context, id string, role Role) (Account, error) {
	if role.Staff() {
		admin, err := s.admins.GetAdmin(ctx, id)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
		if !admin.Active {
			return nil, ErrAccountDisabled
		}
		return adminFromRecord(admin), nil
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return userFromRecord(user), nil
}
