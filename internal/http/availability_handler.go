package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/ebilik/internal/application"
	"github.com/example/ebilik/internal/scheduler"
)

type availabilityService interface {
	Policy() application.BookingPolicy
	TimeSlots() []string
	StartTimes() []string
	IsAvailable(ctx context.Context, q application.AvailabilityQuery) (bool, error)
	EndTimes(ctx context.Context, q application.EndTimesQuery) (application.EndTimesResult, error)
	DaySlots(ctx context.Context, date, roomName string) ([]scheduler.SlotStatus, error)
}

// AvailabilityHandler exposes the slot grid, the availability resolver and the booking catalogue.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

// Slots handles GET /slots.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotsResponse{Slots: h.service.TimeSlots()})
}

// StartTimes handles GET /slots/start-times.
func (h *AvailabilityHandler) StartTimes(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotsResponse{Slots: h.service.StartTimes()})
}

// Check handles GET /availability?date&room&start&end.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := application.AvailabilityQuery{
		Date:      q.Get("date"),
		RoomName:  q.Get("room"),
		StartTime: q.Get("start"),
		EndTime:   q.Get("end"),
	}

	available, err := h.service.IsAvailable(r.Context(), query)
	if err != nil {
		h.log(r.Context(), "Check", "room", query.RoomName, "date", query.Date).
			WarnContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Date:      query.Date,
		RoomName:  query.RoomName,
		StartTime: query.StartTime,
		EndTime:   query.EndTime,
		Available: available,
	})
}

// EndTimes handles GET /availability/end-times?date&room&start&seq&form. Responses for a
// superseded request carry stale=true and no end times.
func (h *AvailabilityHandler) EndTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	principal, _ := PrincipalFromContext(r.Context())

	var seq uint64
	if raw := strings.TrimSpace(q.Get("seq")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				FieldErrors: map[string]string{"seq": "seq must be a non-negative integer"},
			})
			return
		}
		seq = parsed
	}

	form := q.Get("form")
	if !application.ValidFormName(form) {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"form": "form must be up to 32 letters, digits, '-' or '_'"},
		})
		return
	}

	query := application.EndTimesQuery{
		Key:       application.EndTimesKey(principal.AccountID, form),
		Date:      q.Get("date"),
		RoomName:  q.Get("room"),
		StartTime: q.Get("start"),
		Seq:       seq,
	}

	result, err := h.service.EndTimes(r.Context(), query)
	if err != nil {
		h.log(r.Context(), "EndTimes", "room", query.RoomName, "date", query.Date).
			WarnContext(r.Context(), "end time lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	endTimes := result.EndTimes
	if endTimes == nil {
		endTimes = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, endTimesResponse{
		StartTime: query.StartTime,
		EndTimes:  endTimes,
		Seq:       result.Seq,
		Stale:     result.Stale,
	})
}

// Day handles GET /availability/day?date&room.
func (h *AvailabilityHandler) Day(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, room := q.Get("date"), q.Get("room")

	slots, err := h.service.DaySlots(r.Context(), date, room)
	if err != nil {
		h.log(r.Context(), "Day", "room", room, "date", date).
			WarnContext(r.Context(), "day view failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]slotStatusDTO, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotStatusDTO{Time: s.Time, Available: s.Available})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dayResponse{Date: date, RoomName: room, Slots: out})
}

// Rooms handles GET /rooms.
func (h *AvailabilityHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomsResponse{Rooms: h.service.Policy().Rooms})
}

// Classes handles GET /classes.
func (h *AvailabilityHandler) Classes(w http.ResponseWriter, r *http.Request) {
	policy := h.service.Policy()
	h.responder.writeJSON(r.Context(), w, http.StatusOK, classesResponse{
		FormLevels: policy.FormLevels(),
		Classes:    policy.Classes,
	})
}
