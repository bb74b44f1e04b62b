package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/ebilik/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	UpdateStatus(ctx context.Context, principal application.Principal, id, status string) (application.Reservation, error)
	DeleteReservation(ctx context.Context, principal application.Principal, id string) error
	ListMine(ctx context.Context, principal application.Principal) (application.ReservationListing, error)
	Calendar(ctx context.Context, principal application.Principal, month string) ([]application.CalendarDay, error)
	Dashboard(ctx context.Context, principal application.Principal, q application.DashboardQuery) (application.ReservationListing, error)
	Export(ctx context.Context, principal application.Principal, format application.ExportFormat) (application.ExportFile, error)
}

// ReservationHandler serves booking, moderation and export endpoints.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) fail(r *http.Request, w http.ResponseWriter, operation string, err error, attrs ...any) {
	h.log(r.Context(), operation, attrs...).
		WarnContext(r.Context(), "request rejected", "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(r.Context(), w, err)
}

// Create handles POST /reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.handleDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.fail(r, w, "Create", err, "room", req.RoomName, "date", req.Date)
		return
	}

	h.log(r.Context(), "Create", "reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// Mine handles GET /reservations/mine.
func (h *ReservationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	listing, err := h.service.ListMine(r.Context(), principal)
	if err != nil {
		h.fail(r, w, "Mine", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toListingResponse(listing))
}

// Calendar handles GET /reservations/calendar?month=YYYY-MM.
func (h *ReservationHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	month := r.URL.Query().Get("month")

	days, err := h.service.Calendar(r.Context(), principal, month)
	if err != nil {
		h.fail(r, w, "Calendar", err, "month", month)
		return
	}

	out := make([]calendarDayDTO, 0, len(days))
	for _, d := range days {
		out = append(out, calendarDayDTO{Date: d.Date, Mine: d.Mine, Others: d.Others})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{Month: month, Days: out})
}

// Cancel handles PATCH /reservations/{id}/cancel.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.CancelReservation(r.Context(), principal, id)
	if err != nil {
		h.fail(r, w, "Cancel", err, "reservation_id", id)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// List handles GET /reservations?search&status&sort.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	q := r.URL.Query()
	query := application.DashboardQuery{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Sort:   application.SortOrder(q.Get("sort")),
	}

	listing, err := h.service.Dashboard(r.Context(), principal, query)
	if err != nil {
		h.fail(r, w, "List", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toListingResponse(listing))
}

// UpdateStatus handles PATCH /reservations/{id}/status.
func (h *ReservationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.handleDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.UpdateStatus(r.Context(), principal, id, req.Status)
	if err != nil {
		h.fail(r, w, "UpdateStatus", err, "reservation_id", id)
		return
	}

	h.log(r.Context(), "UpdateStatus", "reservation_id", id, "status", reservation.Status).InfoContext(r.Context(), "reservation status changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// Delete handles DELETE /reservations/{id}.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteReservation(r.Context(), principal, id); err != nil {
		h.fail(r, w, "Delete", err, "reservation_id", id)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Export handles GET /exports/reservations?format=csv|json as a file download.
func (h *ReservationHandler) Export(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = string(application.ExportCSV)
	}

	file, err := h.service.Export(r.Context(), principal, application.ExportFormat(format))
	if err != nil {
		h.fail(r, w, "Export", err, "format", format)
		return
	}

	w.Header().Set("Content-Type", file.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.log(r.Context(), "Export").ErrorContext(r.Context(), "failed to write export", "error", err)
	}
}

func (h *ReservationHandler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return "", false
	}
	return id, true
}

type reservationRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	RoomName  string `json:"room" validate:"required,max=100"`
	Purpose   string `json:"purpose" validate:"required,max=500"`
	FormLevel int    `json:"form_level" validate:"required"`
	ClassName string `json:"class_name" validate:"required,max=100"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		RoomName:  r.RoomName,
		Purpose:   r.Purpose,
		FormLevel: r.FormLevel,
		ClassName: r.ClassName,
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed pending cancelled"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type calendarDayDTO struct {
	Date   string `json:"date"`
	Mine   int    `json:"mine"`
	Others int    `json:"others"`
}

type calendarResponse struct {
	Month string           `json:"month"`
	Days  []calendarDayDTO `json:"days"`
}
