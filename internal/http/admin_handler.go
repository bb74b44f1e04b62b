package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/ebilik/internal/application"
)

type adminService interface {
	ListAdmins(ctx context.Context, principal application.Principal) ([]application.Account, error)
	AddAdmin(ctx context.Context, params application.AddAdminParams) (application.Account, error)
	SetActive(ctx context.Context, principal application.Principal, adminID string, active bool) (application.Account, error)
	DeleteAdmin(ctx context.Context, principal application.Principal, adminID string) error
	Overview(ctx context.Context, principal application.Principal, reservations application.ReservationCounter) (application.DashboardStats, error)
}

type userDirectory interface {
	ListUsers(ctx context.Context, principal application.Principal) ([]application.RegularUser, error)
}

// AdminHandler serves roster management, the user directory and installation stats.
type AdminHandler struct {
	admins    adminService
	users     userDirectory
	counter   application.ReservationCounter
	responder responder
	logger    *slog.Logger
}

// NewAdminHandler constructs an AdminHandler. counter supplies reservation totals for /dashboard/stats.
func NewAdminHandler(admins adminService, users userDirectory, counter application.ReservationCounter, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{admins: admins, users: users, counter: counter, responder: newResponder(base), logger: base}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

func (h *AdminHandler) fail(r *http.Request, w http.ResponseWriter, operation string, err error, attrs ...any) {
	h.log(r.Context(), operation, attrs...).
		WarnContext(r.Context(), "request rejected", "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(r.Context(), w, err)
}

// ListAdmins handles GET /admins.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	accounts, err := h.admins.ListAdmins(r.Context(), principal)
	if err != nil {
		h.fail(r, w, "ListAdmins", err)
		return
	}

	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accountsResponse{Accounts: out})
}

// AddAdmin handles POST /admins.
func (h *AdminHandler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.handleDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	account, err := h.admins.AddAdmin(r.Context(), application.AddAdminParams{
		Principal: principal,
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      application.Role(req.Role),
	})
	if err != nil {
		h.fail(r, w, "AddAdmin", err)
		return
	}

	h.log(r.Context(), "AddAdmin", "admin_id", account.AccountID()).InfoContext(r.Context(), "admin added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, accountResponse{Account: toAccountDTO(account)})
}

// SetActive handles PATCH /admins/{id}/active.
func (h *AdminHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req activeRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.handleDecodeError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	account, err := h.admins.SetActive(r.Context(), principal, id, *req.Active)
	if err != nil {
		h.fail(r, w, "SetActive", err, "admin_id", id)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accountResponse{Account: toAccountDTO(account)})
}

// DeleteAdmin handles DELETE /admins/{id}.
func (h *AdminHandler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.admins.DeleteAdmin(r.Context(), principal, id); err != nil {
		h.fail(r, w, "DeleteAdmin", err, "admin_id", id)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListUsers handles GET /users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	users, err := h.users.ListUsers(r.Context(), principal)
	if err != nil {
		h.fail(r, w, "ListUsers", err)
		return
	}

	out := make([]accountDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toAccountDTO(u))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accountsResponse{Accounts: out})
}

// Stats handles GET /dashboard/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	stats, err := h.admins.Overview(r.Context(), principal, h.counter)
	if err != nil {
		h.fail(r, w, "Stats", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dashboardStatsResponse{
		Reservations: toStatsDTO(stats.Reservations),
		Admins:       stats.Admins,
		Users:        stats.Users,
	})
}

type addAdminRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin super_admin"`
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type accountsResponse struct {
	Accounts []accountDTO `json:"accounts"`
}

type dashboardStatsResponse struct {
	Reservations statsDTO `json:"reservations"`
	Admins       int      `json:"admins"`
	Users        int      `json:"users"`
}
