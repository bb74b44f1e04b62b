package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/persistence/memory"
)

type authHarness struct {
	store *memory.Storage
	svc   *AuthService
	now   time.Time
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	h := &authHarness{store: memory.New(), now: testNow}
	h.svc = NewAuthService(AuthDeps{
		Admins:         h.store,
		Users:          h.store,
		Sessions:       h.store,
		IDGenerator:    sequentialIDs("session"),
		TokenGenerator: sequentialIDs("token"),
		Now:            func() time.Time { return h.now },
		SessionTTL:     time.Hour,
		Logger:         discardLogger(),
	})

	ctx := context.Background()
	if err := h.store.CreateUser(ctx, persistence.User{
		ID: "user-alice", FullName: "Alice Tan", Email: "alice@example.com",
		PasswordHash: mustHash(t, "alice-secret"), UserType: UserTypeTeacher, CreatedAt: testNow,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, a := range []persistence.AdminUser{
		{ID: "root-1", FullName: "Root", Email: "root@example.com", PasswordHash: mustHash(t, "root-secret"), Role: string(RoleSuperAdmin), Active: true, CreatedAt: testNow},
		{ID: "admin-off", FullName: "Dormant", Email: "dormant@example.com", PasswordHash: mustHash(t, "dormant-secret"), Role: string(RoleAdmin), Active: false, CreatedAt: testNow},
	} {
		if err := h.store.CreateAdmin(ctx, a); err != nil {
			t.Fatalf("seed admin: %v", err)
		}
	}
	return h
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("regular user", func(t *testing.T) {
		h := newAuthHarness(t)
		result, err := h.svc.Login(ctx, LoginParams{Email: " Alice@Example.com ", Password: "alice-secret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if _, ok := result.Account.(RegularUser); !ok {
			t.Fatalf("expected RegularUser, got %#v", result.Account)
		}
		if result.Session.Token != "token-1" || result.Session.Role != RoleUser {
			t.Fatalf("unexpected session %+v", result.Session)
		}
		if !result.Session.ExpiresAt.Equal(testNow.Add(time.Hour)) {
			t.Fatalf("expected one hour TTL, got %v", result.Session.ExpiresAt)
		}
	})

	t.Run("super admin", func(t *testing.T) {
		h := newAuthHarness(t)
		result, err := h.svc.Login(ctx, LoginParams{Email: "root@example.com", Password: "root-secret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if result.Account.AccountRole() != RoleSuperAdmin || result.Session.Role != RoleSuperAdmin {
			t.Fatalf("expected super admin session, got %+v", result)
		}
	})

	t.Run("failures", func(t *testing.T) {
		tests := []struct {
			name   string
			params LoginParams
			want   error
		}{
			{"blank", LoginParams{}, ErrInvalidCredentials},
			{"unknown email", LoginParams{Email: "nobody@example.com", Password: "whatever1"}, ErrInvalidCredentials},
			{"wrong user password", LoginParams{Email: "alice@example.com", Password: "nope-nope"}, ErrInvalidCredentials},
			{"wrong admin password", LoginParams{Email: "root@example.com", Password: "nope-nope"}, ErrInvalidCredentials},
			{"disabled admin", LoginParams{Email: "dormant@example.com", Password: "dormant-secret"}, ErrAccountDisabled},
			{"disabled admin wrong password", LoginParams{Email: "dormant@example.com", Password: "nope-nope"}, ErrInvalidCredentials},
		}
		h := newAuthHarness(t)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := h.svc.Login(ctx, tt.params); !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the principal", func(t *testing.T) {
		h := newAuthHarness(t)
		result, err := h.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "alice-secret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}

		principal, err := h.svc.ValidateSession(ctx, result.Session.Token)
		if err != nil {
			t.Fatalf("ValidateSession: %v", err)
		}
		want := Principal{AccountID: "user-alice", Role: RoleUser, Name: "Alice Tan", Email: "alice@example.com"}
		if principal != want {
			t.Fatalf("got %+v, want %+v", principal, want)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		h := newAuthHarness(t)
		if _, err := h.svc.ValidateSession(ctx, "missing"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if _, err := h.svc.ValidateSession(ctx, "  "); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for blank token, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		h := newAuthHarness(t)
		result, err := h.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "alice-secret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		h.now = testNow.Add(time.Hour)
		if _, err := h.svc.ValidateSession(ctx, result.Session.Token); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("revoked by logout", func(t *testing.T) {
		h := newAuthHarness(t)
		result, err := h.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "alice-secret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if err := h.svc.Logout(ctx, result.Session.Token); err != nil {
			t.Fatalf("Logout: %v", err)
		}
		if _, err := h.svc.ValidateSession(ctx, result.Session.Token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
		if err := h.svc.Logout(ctx, "missing"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for unknown token, got %v", err)
		}
	})

	t.Run("admin disabled after login", func(t *testing.T) {
		h := newAuthHarness(t)
		result, err := h.svc.Login(ctx, LoginParams{Email: "root@example.com", Password: "root-secret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		record, _ := h.store.GetAdmin(ctx, "root-1")
		record.Active = false
		if err := h.store.UpdateAdmin(ctx, record); err != nil {
			t.Fatalf("update: %v", err)
		}
		if _, err := h.svc.ValidateSession(ctx, result.Session.Token); !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("login purges expired sessions", func(t *testing.T) {
		h := newAuthHarness(t)
		first, err := h.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "alice-secret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		h.now = testNow.Add(2 * time.Hour)
		if _, err := h.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "alice-secret"}); err != nil {
			t.Fatalf("second Login: %v", err)
		}
		if _, err := h.store.GetSession(ctx, first.Session.Token); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected expired session to be purged, got %v", err)
		}
	})
}

func TestAuthService_TokenDigest(t *testing.T) {
	ctx := context.Background()
	h := newAuthHarness(t)
	digest := HMACTokenDigest("session-secret")
	h.svc = NewAuthService(AuthDeps{
		Admins:         h.store,
		Users:          h.store,
		Sessions:       h.store,
		TokenGenerator: sequentialIDs("token"),
		TokenDigest:    digest,
		Now:            func() time.Time { return h.now },
		Logger:         discardLogger(),
	})

	result, err := h.svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "alice-secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Session.Token != "token-1" {
		t.Fatalf("expected the caller to receive the raw token, got %q", result.Session.Token)
	}
	if _, err := h.store.GetSession(ctx, "token-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected raw token to be absent from the store, got %v", err)
	}
	if _, err := h.store.GetSession(ctx, digest("token-1")); err != nil {
		t.Fatalf("expected digest key in the store: %v", err)
	}
	if result.Session.ID == "" || result.Session.ID == "token-1" {
		t.Fatalf("expected an independent session id, got %q", result.Session.ID)
	}

	if _, err := h.svc.ValidateSession(ctx, "token-1"); err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if err := h.svc.Logout(ctx, "token-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if digest("a") == HMACTokenDigest("other")("a") {
		t.Fatalf("expected digests to depend on the secret")
	}
}

func TestNewSessionToken(t *testing.T) {
	a, b := NewSessionToken(), NewSessionToken()
	if len(a) != 64 || a == b {
		t.Fatalf("expected distinct 64 char tokens, got %q and %q", a, b)
	}
}
