package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/example/ebilik/internal/application"
	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/testfixtures"
)

const testPassword = "correct-horse"

type apiHarness struct {
	t        *testing.T
	services *testfixtures.Services
	handler  http.Handler
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	services := testfixtures.NewServices(t, testfixtures.NewMemoryStore(t), testfixtures.WithLogger(logger))
	ctx := context.Background()

	hash := testfixtures.MustHash(t, testPassword)
	if err := services.Store.CreateUser(ctx, testfixtures.NewUser(
		testfixtures.WithUserID("user-alice"),
		testfixtures.WithUserEmail("alice@example.com"),
		testfixtures.WithUserPasswordHash(hash),
	)); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := services.Store.CreateUser(ctx, testfixtures.NewUser(
		testfixtures.WithUserID("user-bob"),
		testfixtures.WithUserEmail("bob@example.com"),
		testfixtures.WithUserPasswordHash(hash),
	)); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, a := range []persistence.AdminUser{
		testfixtures.NewAdmin(testfixtures.WithAdminID("admin-mod"), testfixtures.WithAdminEmail("mod@example.com"), testfixtures.WithAdminPasswordHash(hash)),
		testfixtures.NewAdmin(testfixtures.WithAdminID("admin-root"), testfixtures.WithAdminEmail("root@example.com"), testfixtures.WithAdminPasswordHash(hash), testfixtures.AsSuperAdmin()),
	} {
		if err := services.Store.CreateAdmin(ctx, a); err != nil {
			t.Fatalf("seed admin: %v", err)
		}
	}

	handler := NewRouter(RouterConfig{
		Auth: NewAuthHandler(services.Auth, services.Users, false, logger).
			OnLogout(func(p application.Principal) { services.Availability.ForgetAccount(p.AccountID) }),
		Availability: NewAvailabilityHandler(services.Availability, logger),
		Reservations: NewReservationHandler(services.Reservations, logger),
		Admin:        NewAdminHandler(services.Admins, services.Users, services.Reservations, logger),
		Health:       NewHealthHandler(map[string]Pinger{"store": services.Store}, logger),
		Sessions:     services.Auth,
		Logger:       logger,
	})

	return &apiHarness{t: t, services: services, handler: handler}
}

func (h *apiHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) login(email string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/sessions", "", map[string]string{"email": email, "password": testPassword})
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp loginResponse
	decodeBody(h.t, rec, &resp)
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorResponse {
	t.Helper()
	expectStatus(t, rec, status)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != code {
		t.Fatalf("expected error code %s, got %+v", code, resp)
	}
	return resp
}

func TestRouter_Health(t *testing.T) {
	h := newAPIHarness(t)

	expectStatus(t, h.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)

	rec := h.do(http.MethodGet, "/readyz", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var resp healthResponse
	decodeBody(t, rec, &resp)
	if resp.Checks["store"] != "ok" {
		t.Fatalf("unexpected readiness %+v", resp)
	}

	failing := NewRouter(RouterConfig{
		Health: NewHealthHandler(map[string]Pinger{
			"redis": PingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		}, nil),
	})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	expectStatus(t, rec, http.StatusServiceUnavailable)
}

func TestRouter_Sessions(t *testing.T) {
	h := newAPIHarness(t)

	t.Run("login issues token via body, header and cookie", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "Alice@Example.com", "password": testPassword})
		expectStatus(t, rec, http.StatusCreated)

		var resp loginResponse
		decodeBody(t, rec, &resp)
		if resp.Token == "" || resp.Account.ID != "user-alice" || resp.Account.Role != "user" {
			t.Fatalf("unexpected login response %+v", resp)
		}
		if rec.Header().Get("X-Session-Token") != resp.Token {
			t.Fatalf("expected token header")
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value != resp.Token || !cookies[0].HttpOnly {
			t.Fatalf("unexpected cookies %+v", cookies)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		expectErrorCode(t, h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "alice@example.com", "password": "wrong"}),
			http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS")
		expectErrorCode(t, h.do(http.MethodPost, "/sessions", "", "{not json"), http.StatusBadRequest, "BAD_REQUEST")

		resp := expectErrorCode(t, h.do(http.MethodPost, "/sessions", "", map[string]string{}), http.StatusUnprocessableEntity, "VALIDATION_FAILED")
		if resp.Errors["email"] == "" || resp.Errors["password"] == "" {
			t.Fatalf("expected field errors keyed by json name, got %+v", resp.Errors)
		}
	})

	t.Run("protected routes require a session", func(t *testing.T) {
		expectErrorCode(t, h.do(http.MethodGet, "/slots", "", nil), http.StatusUnauthorized, "AUTH_REQUIRED")
		expectErrorCode(t, h.do(http.MethodGet, "/slots", "bogus", nil), http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		token := h.login("bob@example.com")
		expectStatus(t, h.do(http.MethodGet, "/slots", token, nil), http.StatusOK)
		expectStatus(t, h.do(http.MethodDelete, "/sessions/current", token, nil), http.StatusNoContent)
		expectErrorCode(t, h.do(http.MethodGet, "/slots", token, nil), http.StatusUnauthorized, "AUTH_SESSION_REVOKED")
	})

	t.Run("session cookie authenticates", func(t *testing.T) {
		token := h.login("alice@example.com")
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		expectStatus(t, rec, http.StatusOK)
	})
}

func TestRouter_Catalogue(t *testing.T) {
	h := newAPIHarness(t)
	token := h.login("alice@example.com")

	rec := h.do(http.MethodGet, "/slots", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var slots slotsResponse
	decodeBody(t, rec, &slots)
	if len(slots.Slots) != 21 || slots.Slots[0] != "08:00" || slots.Slots[20] != "18:00" {
		t.Fatalf("unexpected grid %v", slots.Slots)
	}

	rec = h.do(http.MethodGet, "/slots/start-times", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &slots)
	if len(slots.Slots) != 20 || slots.Slots[19] != "17:30" {
		t.Fatalf("unexpected start times %v", slots.Slots)
	}

	rec = h.do(http.MethodGet, "/rooms", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"rooms":[`) || !strings.Contains(rec.Body.String(), "Bilik Tayangan") {
		t.Fatalf("unexpected rooms body %s", rec.Body.String())
	}

	rec = h.do(http.MethodGet, "/classes", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var classes classesResponse
	decodeBody(t, rec, &classes)
	if len(classes.FormLevels) != 5 || classes.FormLevels[0] != 1 || !strings.Contains(rec.Body.String(), `"form_levels":[1,2,3,4,5]`) {
		t.Fatalf("unexpected form levels %s", rec.Body.String())
	}
	if len(classes.Classes) == 0 || classes.Classes[0] != "Ibnu Sina" {
		t.Fatalf("unexpected classes %v", classes.Classes)
	}

	rec = h.do(http.MethodGet, "/availability?date="+testfixtures.ReferenceDate+"&room=Bilik+Tayangan&start=09:00&end=10:00", token, nil)
	expectStatus(t, rec, http.StatusOK)
	for _, field := range []string{`"available":true`, `"room":"Bilik Tayangan"`, `"start_time":"09:00"`, `"end_time":"10:00"`} {
		if !strings.Contains(rec.Body.String(), field) {
			t.Fatalf("expected %s in %s", field, rec.Body.String())
		}
	}
}

func TestRouter_Register(t *testing.T) {
	h := newAPIHarness(t)
	body := map[string]string{
		"full_name": "Siti Hajar",
		"email":     "siti@example.com",
		"password":  "long-enough",
		"user_type": "student",
	}

	rec := h.do(http.MethodPost, "/users/register", "", body)
	expectStatus(t, rec, http.StatusCreated)
	var resp accountResponse
	decodeBody(t, rec, &resp)
	if resp.Account.Email != "siti@example.com" || resp.Account.UserType != "student" {
		t.Fatalf("unexpected account %+v", resp.Account)
	}

	expectErrorCode(t, h.do(http.MethodPost, "/users/register", "", body), http.StatusConflict, "ALREADY_EXISTS")

	body["email"] = "root@example.com"
	expectErrorCode(t, h.do(http.MethodPost, "/users/register", "", body), http.StatusConflict, "ALREADY_EXISTS")

	body["email"] = "other@example.com"
	body["user_type"] = "parent"
	invalid := expectErrorCode(t, h.do(http.MethodPost, "/users/register", "", body), http.StatusUnprocessableEntity, "VALIDATION_FAILED")
	if invalid.Errors["user_type"] == "" {
		t.Fatalf("expected user_type error, got %+v", invalid.Errors)
	}

	expectStatus(t, h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "siti@example.com", "password": "long-enough"}), http.StatusCreated)
}

func TestRouter_BookingFlow(t *testing.T) {
	h := newAPIHarness(t)
	alice := h.login("alice@example.com")
	bob := h.login("bob@example.com")

	booking := map[string]any{
		"date":       testfixtures.ReferenceDate,
		"start_time": "09:00",
		"end_time":   "10:30",
		"room":       "Bilik Tayangan",
		"purpose":    "Documentary",
		"form_level": 4,
		"class_name": "Ibnu Sina",
	}

	rec := h.do(http.MethodPost, "/reservations", alice, booking)
	expectStatus(t, rec, http.StatusCreated)
	var created reservationResponse
	decodeBody(t, rec, &created)
	if created.Reservation.Status != "confirmed" || created.Reservation.UserID != "user-alice" {
		t.Fatalf("unexpected reservation %+v", created.Reservation)
	}

	t.Run("conflicting booking is rejected with details", func(t *testing.T) {
		clash := map[string]any{}
		for k, v := range booking {
			clash[k] = v
		}
		clash["start_time"], clash["end_time"] = "10:00", "11:00"

		resp := expectErrorCode(t, h.do(http.MethodPost, "/reservations", bob, clash), http.StatusConflict, "SLOT_UNAVAILABLE")
		if len(resp.Conflicts) != 1 || resp.Conflicts[0].ReservationID != created.Reservation.ID {
			t.Fatalf("unexpected conflicts %+v", resp.Conflicts)
		}

		clash["start_time"], clash["end_time"] = "10:30", "11:00"
		expectStatus(t, h.do(http.MethodPost, "/reservations", bob, clash), http.StatusCreated)
	})

	t.Run("invalid booking fields", func(t *testing.T) {
		bad := map[string]any{"date": testfixtures.ReferenceDate, "start_time": "09:15", "end_time": "10:00", "room": "Dewan", "purpose": "x", "form_level": 9, "class_name": "Ibnu Sina"}
		resp := expectErrorCode(t, h.do(http.MethodPost, "/reservations", alice, bad), http.StatusUnprocessableEntity, "VALIDATION_FAILED")
		for _, field := range []string{"room", "start_time", "form_level"} {
			if resp.Errors[field] == "" {
				t.Fatalf("expected %s error, got %+v", field, resp.Errors)
			}
		}
	})

	t.Run("availability reflects the booking", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/availability?date="+testfixtures.ReferenceDate+"&room=Bilik+Tayangan&start=09:30&end=10:00", bob, nil)
		expectStatus(t, rec, http.StatusOK)
		var avail availabilityResponse
		decodeBody(t, rec, &avail)
		if avail.Available {
			t.Fatalf("expected slot to be taken")
		}

		rec = h.do(http.MethodGet, "/availability/end-times?date="+testfixtures.ReferenceDate+"&room=Bilik+Tayangan&start=08:00&seq=3&form=new", bob, nil)
		expectStatus(t, rec, http.StatusOK)
		var ends endTimesResponse
		decodeBody(t, rec, &ends)
		if ends.Stale || ends.Seq != 3 || strings.Join(ends.EndTimes, ",") != "08:30,09:00" {
			t.Fatalf("unexpected end times %+v", ends)
		}

		rec = h.do(http.MethodGet, "/availability/end-times?date="+testfixtures.ReferenceDate+"&room=Bilik+Tayangan&start=08:00&seq=2&form=new", bob, nil)
		decodeBody(t, rec, &ends)
		if !ends.Stale || len(ends.EndTimes) != 0 {
			t.Fatalf("expected stale response, got %+v", ends)
		}

		expectErrorCode(t, h.do(http.MethodGet, "/availability/end-times?date="+testfixtures.ReferenceDate+"&room=Bilik+Tayangan&start=08:00&seq=-1", bob, nil),
			http.StatusUnprocessableEntity, "VALIDATION_FAILED")
		resp := expectErrorCode(t, h.do(http.MethodGet, "/availability/end-times?date="+testfixtures.ReferenceDate+"&room=Bilik+Tayangan&start=08:00&form="+strings.Repeat("x", 40), bob, nil),
			http.StatusUnprocessableEntity, "VALIDATION_FAILED")
		if resp.Errors["form"] == "" {
			t.Fatalf("expected form error, got %+v", resp.Errors)
		}

		rec = h.do(http.MethodGet, "/availability/day?date="+testfixtures.ReferenceDate+"&room=Bilik+Tayangan", bob, nil)
		expectStatus(t, rec, http.StatusOK)
		var day dayResponse
		decodeBody(t, rec, &day)
		if len(day.Slots) != 20 || day.Slots[2].Time != "09:00" || day.Slots[2].Available {
			t.Fatalf("unexpected day view %+v", day.Slots[:3])
		}
	})

	t.Run("own listings and calendar", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/reservations/mine", alice, nil)
		expectStatus(t, rec, http.StatusOK)
		var mine listingResponse
		decodeBody(t, rec, &mine)
		if len(mine.Reservations) != 1 || mine.Stats.Total != 1 || mine.Stats.Confirmed != 1 {
			t.Fatalf("unexpected listing %+v", mine)
		}

		rec = h.do(http.MethodGet, "/reservations/calendar?month=2025-03", alice, nil)
		expectStatus(t, rec, http.StatusOK)
		var cal calendarResponse
		decodeBody(t, rec, &cal)
		if len(cal.Days) != 1 || cal.Days[0].Mine != 1 || cal.Days[0].Others != 1 {
			t.Fatalf("unexpected calendar %+v", cal)
		}
	})

	t.Run("only the owner cancels", func(t *testing.T) {
		path := "/reservations/" + created.Reservation.ID + "/cancel"
		expectErrorCode(t, h.do(http.MethodPatch, path, bob, nil), http.StatusForbidden, "AUTH_FORBIDDEN")

		rec := h.do(http.MethodPatch, path, alice, nil)
		expectStatus(t, rec, http.StatusOK)
		var resp reservationResponse
		decodeBody(t, rec, &resp)
		if resp.Reservation.Status != "cancelled" {
			t.Fatalf("expected cancelled, got %s", resp.Reservation.Status)
		}

		expectErrorCode(t, h.do(http.MethodPatch, "/reservations/missing/cancel", alice, nil), http.StatusNotFound, "NOT_FOUND")
	})
}

func TestRouter_Moderation(t *testing.T) {
	h := newAPIHarness(t)
	alice := h.login("alice@example.com")
	mod := h.login("mod@example.com")
	root := h.login("root@example.com")

	testfixtures.Seed(t, h.services.Store,
		testfixtures.NewReservation(testfixtures.WithReservationID("r-1"), testfixtures.OwnedBy("user-alice", "Alice", "alice@example.com")),
		testfixtures.NewReservation(testfixtures.WithReservationID("r-2"), testfixtures.InRoom("Makmal Komputer 1"), testfixtures.WithStatus("pending")),
	)

	expectErrorCode(t, h.do(http.MethodGet, "/reservations", alice, nil), http.StatusForbidden, "AUTH_FORBIDDEN")

	rec := h.do(http.MethodGet, "/reservations?status=pending", mod, nil)
	expectStatus(t, rec, http.StatusOK)
	var listing listingResponse
	decodeBody(t, rec, &listing)
	if len(listing.Reservations) != 1 || listing.Reservations[0].ID != "r-2" || listing.Stats.Total != 2 {
		t.Fatalf("unexpected dashboard %+v", listing)
	}

	expectErrorCode(t, h.do(http.MethodGet, "/reservations?sort=price", mod, nil), http.StatusUnprocessableEntity, "VALIDATION_FAILED")

	rec = h.do(http.MethodPatch, "/reservations/r-2/status", mod, map[string]string{"status": "confirmed"})
	expectStatus(t, rec, http.StatusOK)
	expectErrorCode(t, h.do(http.MethodPatch, "/reservations/r-2/status", mod, map[string]string{"status": "approved"}),
		http.StatusUnprocessableEntity, "VALIDATION_FAILED")

	expectStatus(t, h.do(http.MethodDelete, "/reservations/r-1", mod, nil), http.StatusNoContent)
	expectErrorCode(t, h.do(http.MethodDelete, "/reservations/r-1", root, nil), http.StatusNotFound, "NOT_FOUND")

	t.Run("super admin surfaces", func(t *testing.T) {
		for _, path := range []string{"/admins", "/users", "/dashboard/stats", "/exports/reservations"} {
			expectErrorCode(t, h.do(http.MethodGet, path, mod, nil), http.StatusForbidden, "AUTH_FORBIDDEN")
		}

		rec := h.do(http.MethodGet, "/dashboard/stats", root, nil)
		expectStatus(t, rec, http.StatusOK)
		var stats dashboardStatsResponse
		decodeBody(t, rec, &stats)
		if stats.Reservations.Total != 1 || stats.Admins != 2 || stats.Users != 2 {
			t.Fatalf("unexpected stats %+v", stats)
		}

		rec = h.do(http.MethodGet, "/exports/reservations?format=csv", root, nil)
		expectStatus(t, rec, http.StatusOK)
		if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="reservations_csv_2025-03-10.csv"` {
			t.Fatalf("unexpected disposition %q", got)
		}
		if !strings.HasPrefix(rec.Body.String(), "id,user_name,") {
			t.Fatalf("unexpected csv %q", rec.Body.String())
		}

		expectErrorCode(t, h.do(http.MethodGet, "/exports/reservations?format=xml", root, nil), http.StatusUnprocessableEntity, "VALIDATION_FAILED")
	})

	t.Run("roster management", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/admins", root, map[string]string{
			"full_name": "Cikgu Ali",
			"email":     "ali@example.com",
			"password":  "password-1",
		})
		expectStatus(t, rec, http.StatusCreated)
		var added accountResponse
		decodeBody(t, rec, &added)
		if added.Account.Role != "admin" || added.Account.Active == nil || !*added.Account.Active {
			t.Fatalf("unexpected account %+v", added.Account)
		}

		expectErrorCode(t, h.do(http.MethodPost, "/admins", root, map[string]string{
			"full_name": "X", "email": "x@example.com", "password": "password-1", "role": "user",
		}), http.StatusUnprocessableEntity, "VALIDATION_FAILED")

		path := "/admins/" + added.Account.ID + "/active"
		expectErrorCode(t, h.do(http.MethodPatch, path, root, map[string]any{}), http.StatusUnprocessableEntity, "VALIDATION_FAILED")
		rec = h.do(http.MethodPatch, path, root, map[string]bool{"active": false})
		expectStatus(t, rec, http.StatusOK)
		expectErrorCode(t, h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "ali@example.com", "password": "password-1"}),
			http.StatusUnauthorized, "AUTH_ACCOUNT_DISABLED")

		expectErrorCode(t, h.do(http.MethodPatch, "/admins/admin-root/active", root, map[string]bool{"active": false}),
			http.StatusUnprocessableEntity, "VALIDATION_FAILED")
		expectErrorCode(t, h.do(http.MethodDelete, "/admins/admin-root", root, nil), http.StatusUnprocessableEntity, "VALIDATION_FAILED")

		expectStatus(t, h.do(http.MethodDelete, "/admins/"+added.Account.ID, root, nil), http.StatusNoContent)

		rec = h.do(http.MethodGet, "/admins", root, nil)
		expectStatus(t, rec, http.StatusOK)
		var roster accountsResponse
		decodeBody(t, rec, &roster)
		if len(roster.Accounts) != 2 {
			t.Fatalf("expected two admins, got %+v", roster.Accounts)
		}
	})
}
