package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/example/ebilik/internal/application"
)

// RouterConfig wires handlers and cross-cutting middleware into the API router.
type RouterConfig struct {
	Auth         *AuthHandler
	Availability *AvailabilityHandler
	Reservations *ReservationHandler
	Admin        *AdminHandler
	Health       *HealthHandler
	Sessions     SessionValidator
	Logger       *slog.Logger

	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowedOrigins []string
	// RateLimit guards every route except the probes. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler
	// Middleware runs outermost, before request logging.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the chi router for the API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	r := chi.NewRouter()

	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
			ExposedHeaders:   []string{RequestIDHeader, "X-Session-Token", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Live)
		r.Get("/readyz", cfg.Health.Ready)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		r.Use(middleware.Timeout(30 * time.Second))

		if cfg.Auth != nil {
			r.Post("/sessions", cfg.Auth.CreateSession)
			r.Post("/users/register", cfg.Auth.Register)
		}

		if cfg.Sessions == nil {
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(cfg.Sessions, logger))

			if cfg.Auth != nil {
				r.Delete("/sessions/current", cfg.Auth.DeleteCurrentSession)
			}

			if h := cfg.Availability; h != nil {
				r.Get("/slots", h.Slots)
				r.Get("/slots/start-times", h.StartTimes)
				r.Get("/availability", h.Check)
				r.Get("/availability/end-times", h.EndTimes)
				r.Get("/availability/day", h.Day)
				r.Get("/rooms", h.Rooms)
				r.Get("/classes", h.Classes)
			}

			if h := cfg.Reservations; h != nil {
				r.Post("/reservations", h.Create)
				r.Get("/reservations/mine", h.Mine)
				r.Get("/reservations/calendar", h.Calendar)
				r.Patch("/reservations/{id}/cancel", h.Cancel)

				r.Group(func(r chi.Router) {
					r.Use(RequireRole(logger, application.RoleAdmin, application.RoleSuperAdmin))
					r.Get("/reservations", h.List)
					r.Patch("/reservations/{id}/status", h.UpdateStatus)
					r.Delete("/reservations/{id}", h.Delete)
				})
			}

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(logger, application.RoleSuperAdmin))

				if h := cfg.Admin; h != nil {
					r.Get("/admins", h.ListAdmins)
					r.Post("/admins", h.AddAdmin)
					r.Patch("/admins/{id}/active", h.SetActive)
					r.Delete("/admins/{id}", h.DeleteAdmin)
					r.Get("/users", h.ListUsers)
					r.Get("/dashboard/stats", h.Stats)
				}
				if h := cfg.Reservations; h != nil {
					r.Get("/exports/reservations", h.Export)
				}
			})
		})
	})

	return r
}
