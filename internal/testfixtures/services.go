package testfixtures

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/ebilik/internal/application"
	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/scheduler"
)

// FastArgon2idParams keep password hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// FastHash hashes with FastArgon2idParams.
func FastHash(password string) (string, error) {
	return application.CreatePasswordHash(password, FastArgon2idParams)
}

// MustHash hashes password or fails the test.
func MustHash(tb testing.TB, password string) string {
	tb.Helper()
	hash, err := FastHash(password)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	return hash
}

// Services is a fully wired application layer over one store.
type Services struct {
	Store        persistence.Store
	Clock        *Clock
	IDs          *Sequence
	Availability *application.AvailabilityService
	Reservations *application.ReservationService
	Users        *application.UserService
	Admins       *application.AdminService
	Auth         *application.AuthService
}

// ServiceOption adjusts NewServices.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	clock  *Clock
	ids    *Sequence
	grid   *scheduler.Grid
	policy application.BookingPolicy
	logger *slog.Logger
	ttl    time.Duration
}

// WithClock shares a clock with the caller.
func WithClock(clock *Clock) ServiceOption {
	return func(c *serviceConfig) { c.clock = clock }
}

// WithPolicy overrides the booking policy.
func WithPolicy(policy application.BookingPolicy) ServiceOption {
	return func(c *serviceConfig) { c.policy = policy }
}

// WithLogger routes service logs to logger instead of discarding them.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(c *serviceConfig) { c.logger = logger }
}

// NewServices wires every application service over store with a deterministic clock,
// sequential IDs and cheap password hashing.
func NewServices(tb testing.TB, store persistence.Store, opts ...ServiceOption) *Services {
	tb.Helper()

	cfg := serviceConfig{
		clock:  NewClock(time.Time{}),
		ids:    NewSequence("id"),
		grid:   scheduler.DefaultGrid(),
		policy: application.DefaultBookingPolicy(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	resolver, err := scheduler.NewResolver(cfg.grid, application.StoreLister(store))
	if err != nil {
		tb.Fatalf("new resolver: %v", err)
	}

	availability := application.NewAvailabilityService(resolver, scheduler.NewTracker(), cfg.policy, cfg.logger)
	now := cfg.clock.NowFunc()
	nextID := cfg.ids.NextFunc()

	return &Services{
		Store:        store,
		Clock:        cfg.clock,
		IDs:          cfg.ids,
		Availability: availability,
		Reservations: application.NewReservationService(store, availability, nextID, now, cfg.logger),
		Users:        application.NewUserService(store, store, FastHash, nextID, now, cfg.logger),
		Admins:       application.NewAdminService(store, store, FastHash, nextID, now, cfg.logger),
		Auth: application.NewAuthService(application.AuthDeps{
			Admins:      store,
			Users:       store,
			Sessions:    store,
			IDGenerator: nextID,
			Now:         now,
			SessionTTL:  cfg.ttl,
			Logger:      cfg.logger,
		}),
	}
}
