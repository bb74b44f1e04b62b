package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/ebilik/internal/application"
	"github.com/example/ebilik/internal/config"
	httptransport "github.com/example/ebilik/internal/http"
	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/persistence/memory"
	"github.com/example/ebilik/internal/persistence/postgres"
	"github.com/example/ebilik/internal/persistence/sqlite"
	"github.com/example/ebilik/internal/persistence/sqlite/migration"
	"github.com/example/ebilik/internal/scheduler"
)

// app holds the wired HTTP handler and everything that must be released on shutdown.
type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newApp opens the configured store, wires every service and handler and seeds the bootstrap
// super admin when the roster is empty.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	grid, err := scheduler.NewGrid(cfg.Grid())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build slot grid: %w", err)
	}
	resolver, err := scheduler.NewResolver(grid, application.StoreLister(store))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build availability resolver: %w", err)
	}

	policy := application.DefaultBookingPolicy()
	if len(cfg.Rooms) > 0 {
		policy.Rooms = cfg.Rooms
	}
	policy.WindowDays = cfg.WindowDays

	now := time.Now
	availability := application.NewAvailabilityService(resolver, scheduler.NewTracker(), policy, logger)
	reservations := application.NewReservationService(store, availability, uuid.NewString, now, logger)
	users := application.NewUserService(store, store, application.HashPassword, uuid.NewString, now, logger)
	admins := application.NewAdminService(store, store, application.HashPassword, uuid.NewString, now, logger)
	auth := application.NewAuthService(application.AuthDeps{
		Admins:      store,
		Users:       store,
		Sessions:    store,
		TokenDigest: application.HMACTokenDigest(cfg.SessionSecret),
		Now:         now,
		SessionTTL:  cfg.SessionTTL,
		Logger:      logger,
	})

	if cfg.BootstrapAdminEmail != "" {
		created, err := admins.EnsureSuperAdmin(ctx, cfg.BootstrapAdminName, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("bootstrap super admin: %w", err)
		}
		if created {
			logger.Info("bootstrap super admin created", "email", cfg.BootstrapAdminEmail)
		}
	}

	checks := map[string]httptransport.Pinger{"store": store}
	rateLimit := httptransport.LocalRateLimit(cfg.RateLimitPerMinute, time.Minute)
	if cfg.RedisAddr != "" && cfg.RateLimitPerMinute > 0 {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			DialTimeout: 2 * time.Second,
		})
		a.closers = append(a.closers, client.Close)
		checks["redis"] = httptransport.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis is not reachable, rate limiting will follow the fail-open setting", "addr", cfg.RedisAddr, "error", err)
		}
		limiter := httptransport.NewRedisRateLimiter(client, cfg.RateLimitPerMinute, time.Minute, "ebilik:rl")
		rateLimit = limiter.Middleware(logger, cfg.RedisFailOpen)
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth: httptransport.NewAuthHandler(auth, users, cfg.SecureCookies, logger).
			OnLogout(func(p application.Principal) { availability.ForgetAccount(p.AccountID) }),
		Availability:   httptransport.NewAvailabilityHandler(availability, logger),
		Reservations:   httptransport.NewReservationHandler(reservations, logger),
		Admin:          httptransport.NewAdminHandler(admins, users, reservations, logger),
		Health:         httptransport.NewHealthHandler(checks, logger),
		Sessions:       auth,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      rateLimit,
	})
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using the in-memory store, data is lost on restart")
		return memory.New(), nil
	case config.DriverSQLite:
		storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return storage, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
