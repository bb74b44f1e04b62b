package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ebilik/internal/persistence/memory"
	"github.com/example/ebilik/internal/scheduler"
)

func TestReservationService_CreateReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an authenticated principal", func(t *testing.T) {
		h := newBookingHarness(t, nil)
		_, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Input: validInput()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates the booking form", func(t *testing.T) {
		h := newBookingHarness(t, nil)
		in := ReservationInput{
			Date:      "2025-05-30",
			StartTime: "09:00",
			EndTime:   "08:00",
			RoomName:  "Bilik Rahsia",
			Purpose:   "   ",
			FormLevel: 6,
			ClassName: "Ibnu Batuta",
		}
		_, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Principal: alice, Input: in})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"date", "room", "end_time", "purpose", "form_level", "class_name"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects dates outside the booking window", func(t *testing.T) {
		h := newBookingHarness(t, nil)
		for _, date := range []string{"2025-03-09", "2025-04-10"} {
			in := validInput()
			in.Date = date
			_, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Principal: alice, Input: in})
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.FieldErrors["date"] == "" {
				t.Fatalf("expected date error for %s, got %v", date, err)
			}
		}

		in := validInput()
		in.Date = "2025-04-09"
		if _, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Principal: alice, Input: in}); err != nil {
			t.Fatalf("expected last window day to be bookable, got %v", err)
		}
	})

	t.Run("stores a confirmed reservation for the principal", func(t *testing.T) {
		h := newBookingHarness(t, nil)
		in := validInput()
		in.Purpose = "  Documentary screening  "

		created, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Principal: alice, Input: in})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID != "res-1" || created.Status != scheduler.StatusConfirmed {
			t.Fatalf("unexpected reservation %+v", created)
		}
		if created.UserID != alice.AccountID || created.UserName != alice.Name || created.Email != alice.Email {
			t.Fatalf("expected principal identity on reservation, got %+v", created)
		}
		if created.Purpose != "Documentary screening" || !created.CreatedAt.Equal(testNow) {
			t.Fatalf("expected trimmed purpose and clock time, got %+v", created)
		}

		record, err := h.store.GetReservation(ctx, "res-1")
		if err != nil || record.StartTime != "09:00" || record.EndTime != "10:00" {
			t.Fatalf("expected persisted reservation, got %+v, %v", record, err)
		}
	})

	t.Run("rejects overlapping bookings with the blocking reservation", func(t *testing.T) {
		h := newBookingHarness(t, nil)
		h.seed(t, stored("r-bob", bob.AccountID, "Bilik Tayangan", testDate, "09:30", "10:30", scheduler.StatusConfirmed, testNow))

		_, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Principal: alice, Input: validInput()})
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
		var slotErr *SlotUnavailableError
		if !errors.As(err, &slotErr) || len(slotErr.Conflicts) != 1 || slotErr.Conflicts[0].WithReservationID != "r-bob" {
			t.Fatalf("expected conflict with r-bob, got %v", err)
		}

		list, _ := h.store.ListReservations(ctx)
		if len(list) != 1 {
			t.Fatalf("expected no new reservation, got %d", len(list))
		}
	})

	t.Run("cancelled and back-to-back bookings do not block", func(t *testing.T) {
		h := newBookingHarness(t, nil)
		h.seed(t,
			stored("r-cancelled", bob.AccountID, "Bilik Tayangan", testDate, "09:00", "10:00", scheduler.StatusCancelled, testNow),
			stored("r-before", bob.AccountID, "Bilik Tayangan", testDate, "08:00", "09:00", scheduler.StatusConfirmed, testNow),
			stored("r-after", bob.AccountID, "Bilik Tayangan", testDate, "10:00", "11:00", scheduler.StatusPending, testNow),
		)
		if _, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Principal: alice, Input: validInput()}); err != nil {
			t.Fatalf("expected booking to succeed, got %v", err)
		}
	})

	t.Run("propagates store failures", func(t *testing.T) {
		boom := errors.New("store offline")
		h := newBookingHarness(t, listFailingStore{Storage: memory.New(), err: boom})
		_, err := h.reservations.CreateReservation(ctx, CreateReservationParams{Principal: alice, Input: validInput()})
		if !errors.Is(err, boom) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}

func TestReservationService_StatusChanges(t *testing.T) {
	ctx := context.Background()

	newSeeded := func(t *testing.T) *bookingHarness {
		h := newBookingHarness(t, nil)
		h.seed(t, stored("r1", alice.AccountID, "Bilik Tayangan", testDate, "09:00", "10:00", scheduler.StatusConfirmed, testNow))
		h.now = testNow.Add(time.Hour)
		return h
	}

	t.Run("owner cancels own reservation", func(t *testing.T) {
		h := newSeeded(t)
		got, err := h.reservations.CancelReservation(ctx, alice, "r1")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != scheduler.StatusCancelled || !got.UpdatedAt.Equal(h.now) {
			t.Fatalf("unexpected reservation %+v", got)
		}

		again, err := h.reservations.CancelReservation(ctx, alice, "r1")
		if err != nil || again.Status != scheduler.StatusCancelled {
			t.Fatalf("expected idempotent cancel, got %+v, %v", again, err)
		}
	})

	t.Run("others cannot cancel", func(t *testing.T) {
		h := newSeeded(t)
		if _, err := h.reservations.CancelReservation(ctx, bob, "r1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := h.reservations.CancelReservation(ctx, alice, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("admins moderate status", func(t *testing.T) {
		h := newSeeded(t)
		if _, err := h.reservations.UpdateStatus(ctx, alice, "r1", scheduler.StatusPending); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for regular user, got %v", err)
		}

		var vErr *ValidationError
		if _, err := h.reservations.UpdateStatus(ctx, moderator, "r1", "archived"); !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}

		got, err := h.reservations.UpdateStatus(ctx, moderator, "r1", scheduler.StatusPending)
		if err != nil || got.Status != scheduler.StatusPending {
			t.Fatalf("expected pending, got %+v, %v", got, err)
		}
	})

	t.Run("reactivating a cancelled reservation rechecks the slot", func(t *testing.T) {
		h := newBookingHarness(t, nil)
		h.seed(t,
			stored("r1", alice.AccountID, "Bilik Tayangan", testDate, "09:00", "10:00", scheduler.StatusCancelled, testNow),
			stored("r2", alice.AccountID, "Bilik Tayangan", testDate, "14:00", "15:00", scheduler.StatusCancelled, testNow),
		)

		taken, err := h.reservations.CreateReservation(ctx, CreateReservationParams{
			Principal: bob,
			Input: ReservationInput{
				Date: testDate, RoomName: "Bilik Tayangan", StartTime: "09:00", EndTime: "10:00",
				Purpose: "Tayangan video", FormLevel: 3, ClassName: "Ibnu Sina",
			},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		_, err = h.reservations.UpdateStatus(ctx, moderator, "r1", scheduler.StatusConfirmed)
		var slotErr *SlotUnavailableError
		if !errors.As(err, &slotErr) || !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected SlotUnavailableError, got %v", err)
		}
		if len(slotErr.Conflicts) != 1 || slotErr.Conflicts[0].WithReservationID != taken.ID {
			t.Fatalf("unexpected conflicts %+v", slotErr.Conflicts)
		}
		if r1, _ := h.store.GetReservation(ctx, "r1"); r1.Status != scheduler.StatusCancelled {
			t.Fatalf("expected r1 to stay cancelled, got %s", r1.Status)
		}

		got, err := h.reservations.UpdateStatus(ctx, moderator, "r2", scheduler.StatusPending)
		if err != nil || got.Status != scheduler.StatusPending {
			t.Fatalf("expected free slot to reactivate, got %+v, %v", got, err)
		}
	})

	t.Run("admins delete", func(t *testing.T) {
		h := newSeeded(t)
		if err := h.reservations.DeleteReservation(ctx, alice, "r1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if err := h.reservations.DeleteReservation(ctx, root, "r1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := h.reservations.DeleteReservation(ctx, root, "r1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReservationService_Listings(t *testing.T) {
	ctx := context.Background()
	h := newBookingHarness(t, nil)
	h.seed(t,
		stored("a1", alice.AccountID, "Bilik Tayangan", "2025-03-12", "10:00", "11:00", scheduler.StatusConfirmed, testNow),
		stored("a2", alice.AccountID, "Makmal Komputer 2", "2025-03-11", "08:00", "09:00", scheduler.StatusPending, testNow.Add(time.Minute)),
		stored("a3", alice.AccountID, "Bilik Tayangan", "2025-03-12", "14:00", "15:00", scheduler.StatusCancelled, testNow.Add(2*time.Minute)),
		stored("b1", bob.AccountID, "Bilik Audio/Visual", "2025-03-12", "08:00", "09:00", scheduler.StatusConfirmed, testNow.Add(3*time.Minute)),
		stored("b2", bob.AccountID, "Bilik Tayangan", "2025-04-01", "08:00", "09:00", scheduler.StatusConfirmed, testNow.Add(4*time.Minute)),
	)

	t.Run("mine is newest first with own stats", func(t *testing.T) {
		listing, err := h.reservations.ListMine(ctx, alice)
		if err != nil {
			t.Fatalf("ListMine: %v", err)
		}
		if got := ids(listing.Reservations); got != "a3,a2,a1" {
			t.Fatalf("unexpected order %s", got)
		}
		want := ReservationStats{Total: 3, Confirmed: 1, Pending: 1, Cancelled: 1}
		if listing.Stats != want {
			t.Fatalf("stats = %+v, want %+v", listing.Stats, want)
		}
	})

	t.Run("calendar splits mine from others and skips cancelled", func(t *testing.T) {
		days, err := h.reservations.Calendar(ctx, alice, "2025-03")
		if err != nil {
			t.Fatalf("Calendar: %v", err)
		}
		want := []CalendarDay{
			{Date: "2025-03-11", Mine: 1},
			{Date: "2025-03-12", Mine: 1, Others: 1},
		}
		if len(days) != len(want) {
			t.Fatalf("days = %+v, want %+v", days, want)
		}
		for i := range want {
			if days[i] != want[i] {
				t.Fatalf("days[%d] = %+v, want %+v", i, days[i], want[i])
			}
		}

		if _, err := h.reservations.Calendar(ctx, alice, "March"); err == nil {
			t.Fatalf("expected validation error for malformed month")
		}
	})

	t.Run("dashboard filters searches and sorts", func(t *testing.T) {
		if _, err := h.reservations.Dashboard(ctx, alice, DashboardQuery{}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		tests := []struct {
			name  string
			query DashboardQuery
			want  string
		}{
			{"default sorts by date then start", DashboardQuery{}, "a2,b1,a1,a3,b2"},
			{"created sort is newest first", DashboardQuery{Sort: SortByCreated}, "b2,b1,a3,a2,a1"},
			{"status filter", DashboardQuery{Status: scheduler.StatusConfirmed}, "b1,a1,b2"},
			{"search is case-insensitive over room", DashboardQuery{Search: "bilik TAYANGAN"}, "a1,a3,b2"},
			{"search matches email", DashboardQuery{Search: "user-bob@"}, "b1,b2"},
			{"search and filter combine", DashboardQuery{Search: "tayangan", Status: scheduler.StatusCancelled}, "a3"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				listing, err := h.reservations.Dashboard(ctx, moderator, tt.query)
				if err != nil {
					t.Fatalf("Dashboard: %v", err)
				}
				if got := ids(listing.Reservations); got != tt.want {
					t.Fatalf("got %s, want %s", got, tt.want)
				}
				if listing.Stats.Total != 5 {
					t.Fatalf("expected stats over every reservation, got %+v", listing.Stats)
				}
			})
		}

		var vErr *ValidationError
		if _, err := h.reservations.Dashboard(ctx, moderator, DashboardQuery{Sort: "room"}); !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError for unknown sort, got %v", err)
		}
	})
}

func ids(list []Reservation) string {
	out := ""
	for i, r := range list {
		if i > 0 {
			out += ","
		}
		out += r.ID
	}
	return out
}
