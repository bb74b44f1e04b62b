package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/testfixtures"
)

// Every store must honour the same contract.
func forEachStore(t *testing.T, fn func(t *testing.T, store persistence.Store)) {
	t.Helper()
	for name, open := range testfixtures.StoreFactories() {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fn(t, open(t))
		})
	}
}

func TestReservationRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()

		older := testfixtures.NewReservation(testfixtures.WithReservationID("r-older"), testfixtures.CreatedAt(base))
		newer := testfixtures.NewReservation(
			testfixtures.WithReservationID("r-newer"),
			testfixtures.Between("10:00", "11:00"),
			testfixtures.CreatedAt(base.Add(time.Hour)),
		)
		testfixtures.Seed(t, store, older, newer)

		if err := store.CreateReservation(ctx, older); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		got, err := store.GetReservation(ctx, "r-older")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.RoomName != older.RoomName || got.StartTime != "09:00" || got.FormLevel != older.FormLevel {
			t.Fatalf("unexpected reservation %+v", got)
		}
		if !got.CreatedAt.Equal(base) {
			t.Fatalf("expected created_at %v, got %v", base, got.CreatedAt)
		}

		list, err := store.ListReservations(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != "r-newer" || list[1].ID != "r-older" {
			t.Fatalf("expected newest first, got %+v", list)
		}

		got.Status = "cancelled"
		got.UpdatedAt = base.Add(2 * time.Hour)
		if err := store.UpdateReservation(ctx, got); err != nil {
			t.Fatalf("update: %v", err)
		}
		if reloaded, _ := store.GetReservation(ctx, "r-older"); reloaded.Status != "cancelled" {
			t.Fatalf("expected cancelled status, got %q", reloaded.Status)
		}

		missing := testfixtures.NewReservation(testfixtures.WithReservationID("nope"))
		if err := store.UpdateReservation(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}

		if err := store.DeleteReservation(ctx, "r-newer"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.DeleteReservation(ctx, "r-newer"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		if _, err := store.GetReservation(ctx, "r-newer"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()

		user := testfixtures.NewUser(testfixtures.WithUserID("u-1"), testfixtures.WithUserEmail("alice@example.com"))
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("create: %v", err)
		}

		clash := testfixtures.NewUser(testfixtures.WithUserID("u-2"), testfixtures.WithUserEmail("ALICE@example.com"))
		if err := store.CreateUser(ctx, clash); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected case-insensitive ErrDuplicate, got %v", err)
		}

		byEmail, err := store.GetUserByEmail(ctx, "Alice@Example.com")
		if err != nil || byEmail.ID != "u-1" {
			t.Fatalf("expected lookup by email, got %+v, %v", byEmail, err)
		}

		noEmail := testfixtures.NewUser(testfixtures.WithUserEmail("  "))
		if err := store.CreateUser(ctx, noEmail); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}

		users, err := store.ListUsers(ctx)
		if err != nil || len(users) != 1 {
			t.Fatalf("expected one user, got %d, %v", len(users), err)
		}

		if err := store.DeleteUser(ctx, "u-1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.GetUser(ctx, "u-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAdminRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()

		root := testfixtures.NewAdmin(testfixtures.WithAdminID("a-root"), testfixtures.AsSuperAdmin())
		helper := testfixtures.NewAdmin(testfixtures.WithAdminID("a-helper"), testfixtures.WithAdminEmail("helper@example.com"))
		for _, a := range []persistence.AdminUser{root, helper} {
			if err := store.CreateAdmin(ctx, a); err != nil {
				t.Fatalf("create %s: %v", a.ID, err)
			}
		}

		dup := testfixtures.NewAdmin(testfixtures.WithAdminEmail("HELPER@example.com"))
		if err := store.CreateAdmin(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		helper.Active = false
		helper.UpdatedAt = helper.UpdatedAt.Add(time.Minute)
		if err := store.UpdateAdmin(ctx, helper); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, err := store.GetAdminByEmail(ctx, "helper@example.com")
		if err != nil {
			t.Fatalf("get by email: %v", err)
		}
		if got.Active || got.Role != "admin" {
			t.Fatalf("expected inactive admin, got %+v", got)
		}

		roster, err := store.ListAdmins(ctx)
		if err != nil || len(roster) != 2 {
			t.Fatalf("expected two admins, got %d, %v", len(roster), err)
		}
		if roster[0].ID != "a-helper" {
			t.Fatalf("expected newest admin first, got %s", roster[0].ID)
		}

		if err := store.DeleteAdmin(ctx, "a-helper"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.DeleteAdmin(ctx, "a-helper"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()

		live := testfixtures.NewSession("u-1", "user")
		expired := testfixtures.NewSession("u-2", "user")
		expired.ExpiresAt = base.Add(-time.Minute)
		for _, s := range []persistence.Session{live, expired} {
			if _, err := store.CreateSession(ctx, s); err != nil {
				t.Fatalf("create %s: %v", s.ID, err)
			}
		}

		got, err := store.GetSession(ctx, live.Token)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.AccountID != "u-1" || got.RevokedAt != nil || !got.ExpiresAt.Equal(live.ExpiresAt) {
			t.Fatalf("unexpected session %+v", got)
		}

		got.ExpiresAt = base.Add(48 * time.Hour)
		got.UpdatedAt = base.Add(time.Minute)
		if _, err := store.UpdateSession(ctx, got); err != nil {
			t.Fatalf("update: %v", err)
		}

		revokedAt := base.Add(2 * time.Minute)
		revoked, err := store.RevokeSession(ctx, live.Token, revokedAt)
		if err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
			t.Fatalf("expected revoked_at %v, got %v", revokedAt, revoked.RevokedAt)
		}
		if !revoked.ExpiresAt.Equal(base.Add(48 * time.Hour)) {
			t.Fatalf("expected updated expiry to persist, got %v", revoked.ExpiresAt)
		}

		if _, err := store.RevokeSession(ctx, "missing", revokedAt); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		if err := store.DeleteExpiredSessions(ctx, base); err != nil {
			t.Fatalf("delete expired: %v", err)
		}
		if _, err := store.GetSession(ctx, expired.Token); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected expired session to be pruned, got %v", err)
		}
		if _, err := store.GetSession(ctx, live.Token); err != nil {
			t.Fatalf("expected live session to survive, got %v", err)
		}
	})
}

func TestStoresAreReachable(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		if err := store.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})
}
