package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/persistence/memory"
	"github.com/example/ebilik/internal/scheduler"
)

// Monday 10 March 2025.
var testNow = time.Date(2025, time.March, 10, 7, 30, 0, 0, time.UTC)

const testDate = "2025-03-10"

var (
	alice     = Principal{AccountID: "user-alice", Role: RoleUser, Name: "Alice Tan", Email: "alice@example.com"}
	bob       = Principal{AccountID: "user-bob", Role: RoleUser, Name: "Bob Lim", Email: "bob@example.com"}
	moderator = Principal{AccountID: "admin-1", Role: RoleAdmin, Name: "Moderator", Email: "mod@example.com"}
	root      = Principal{AccountID: "root-1", Role: RoleSuperAdmin, Name: "Root", Email: "root@example.com"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastHash(password string) (string, error) {
	return CreatePasswordHash(password, Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := fastHash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// listFailingStore fails every reservation listing.
type listFailingStore struct {
	*memory.Storage
	err error
}

func (s listFailingStore) ListReservations(context.Context) ([]persistence.Reservation, error) {
	return nil, s.err
}

type bookingHarness struct {
	store        persistence.Store
	availability *AvailabilityService
	reservations *ReservationService
	now          time.Time
}

func newBookingHarness(t *testing.T, store persistence.Store) *bookingHarness {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	resolver, err := scheduler.NewResolver(scheduler.DefaultGrid(), StoreLister(store))
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	h := &bookingHarness{store: store, now: testNow}
	h.availability = NewAvailabilityService(resolver, nil, DefaultBookingPolicy(), discardLogger())
	h.reservations = NewReservationService(store, h.availability, sequentialIDs("res"), func() time.Time { return h.now }, discardLogger())
	return h
}

func (h *bookingHarness) seed(t *testing.T, reservations ...persistence.Reservation) {
	t.Helper()
	for _, r := range reservations {
		if err := h.store.CreateReservation(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}
}

func stored(id, owner, room, date, start, end, status string, created time.Time) persistence.Reservation {
	return persistence.Reservation{
		ID:        id,
		UserID:    owner,
		UserName:  "Owner " + owner,
		Email:     owner + "@example.com",
		RoomName:  room,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Purpose:   "Lesson",
		FormLevel: 2,
		ClassName: "Al-Farabi",
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func validInput() ReservationInput {
	return ReservationInput{
		Date:      testDate,
		StartTime: "09:00",
		EndTime:   "10:00",
		RoomName:  "Bilik Tayangan",
		Purpose:   "Documentary screening",
		FormLevel: 4,
		ClassName: "Ibnu Sina",
	}
}
