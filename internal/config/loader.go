// Package config loads eBilik settings from EBILIK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/ebilik/internal/logging"
	"github.com/example/ebilik/internal/scheduler"
)

// Store drivers accepted by EBILIK_STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort      int
	StoreDriver   string
	SQLiteDSN     string
	PostgresDSN   string
	RedisAddr     string
	RedisFailOpen bool

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	OpeningHour        int
	ClosingHour        int
	GranularityMinutes int
	WindowDays         int
	Rooms              []string

	RateLimitPerMinute int
	AllowedOrigins     []string

	LogLevel  slog.Level
	LogFormat string

	BootstrapAdminName     string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Grid returns the slot grid configuration.
func (c Config) Grid() scheduler.GridConfig {
	return scheduler.GridConfig{
		OpeningHour:        c.OpeningHour,
		ClosingHour:        c.ClosingHour,
		GranularityMinutes: c.GranularityMinutes,
	}
}

// Load parses configuration values from the process environment. Variables from the given
// dotenv files, or ./.env when none are given, fill in keys the environment leaves unset.
// A missing dotenv file is ignored.
//
// Every missing or invalid key is reported in a single error.
func Load(envFiles ...string) (Config, error) {
	if err := loadDotenv(envFiles); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:           8080,
		StoreDriver:        DriverSQLite,
		SQLiteDSN:          "ebilik.db",
		RedisFailOpen:      true,
		SessionTTL:         24 * time.Hour,
		OpeningHour:        8,
		ClosingHour:        18,
		GranularityMinutes: 30,
		WindowDays:         30,
		RateLimitPerMinute: 120,
		LogLevel:           slog.LevelInfo,
		LogFormat:          "json",
		BootstrapAdminName: "Super Admin",
	}

	p := &parser{}

	p.positiveInt("EBILIK_HTTP_PORT", &cfg.HTTPPort)
	if driver := p.str("EBILIK_STORE_DRIVER"); driver != "" {
		switch driver = strings.ToLower(driver); driver {
		case DriverMemory, DriverSQLite, DriverPostgres:
			cfg.StoreDriver = driver
		default:
			p.invalidKey("EBILIK_STORE_DRIVER")
		}
	}
	if dsn := p.str("EBILIK_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	cfg.PostgresDSN = p.str("EBILIK_POSTGRES_DSN")
	if cfg.StoreDriver == DriverPostgres && cfg.PostgresDSN == "" {
		p.missingKey("EBILIK_POSTGRES_DSN")
	}
	cfg.RedisAddr = p.str("EBILIK_REDIS_ADDR")
	p.boolean("EBILIK_REDIS_FAIL_OPEN", &cfg.RedisFailOpen)

	if cfg.SessionSecret = p.str("EBILIK_SESSION_SECRET"); cfg.SessionSecret == "" {
		p.missingKey("EBILIK_SESSION_SECRET")
	}
	if raw := p.str("EBILIK_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			p.invalidKey("EBILIK_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}
	p.boolean("EBILIK_SECURE_COOKIES", &cfg.SecureCookies)

	gridKeys := []string{"EBILIK_OPENING_HOUR", "EBILIK_CLOSING_HOUR", "EBILIK_SLOT_MINUTES"}
	before := len(p.invalid)
	p.nonNegativeInt(gridKeys[0], &cfg.OpeningHour)
	p.nonNegativeInt(gridKeys[1], &cfg.ClosingHour)
	p.positiveInt(gridKeys[2], &cfg.GranularityMinutes)
	if len(p.invalid) == before {
		if err := cfg.Grid().Validate(); err != nil {
			p.invalid = append(p.invalid, strings.Join(gridKeys, "/"))
		}
	}
	p.positiveInt("EBILIK_BOOKING_WINDOW_DAYS", &cfg.WindowDays)
	cfg.Rooms = p.list("EBILIK_ROOMS")

	p.nonNegativeInt("EBILIK_RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerMinute)
	cfg.AllowedOrigins = p.list("EBILIK_CORS_ORIGINS")

	if raw := p.str("EBILIK_LOG_LEVEL"); raw != "" {
		level, err := logging.ParseLevel(raw)
		if err != nil {
			p.invalidKey("EBILIK_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}
	if format := p.str("EBILIK_LOG_FORMAT"); format != "" {
		switch format = strings.ToLower(format); format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			p.invalidKey("EBILIK_LOG_FORMAT")
		}
	}

	if name := p.str("EBILIK_BOOTSTRAP_ADMIN_NAME"); name != "" {
		cfg.BootstrapAdminName = name
	}
	cfg.BootstrapAdminEmail = p.str("EBILIK_BOOTSTRAP_ADMIN_EMAIL")
	cfg.BootstrapAdminPassword = p.str("EBILIK_BOOTSTRAP_ADMIN_PASSWORD")
	switch {
	case cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword == "":
		p.missingKey("EBILIK_BOOTSTRAP_ADMIN_PASSWORD")
	case cfg.BootstrapAdminEmail == "" && cfg.BootstrapAdminPassword != "":
		p.missingKey("EBILIK_BOOTSTRAP_ADMIN_EMAIL")
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

type parser struct {
	missing []string
	invalid []string
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (p *parser) missingKey(key string) { p.missing = append(p.missing, key) }
func (p *parser) invalidKey(key string) { p.invalid = append(p.invalid, key) }

func (p *parser) positiveInt(key string, dst *int) {
	p.intAtLeast(key, 1, dst)
}

func (p *parser) nonNegativeInt(key string, dst *int) {
	p.intAtLeast(key, 0, dst)
}

func (p *parser) intAtLeast(key string, floor int, dst *int) {
	raw := p.str(key)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < floor {
		p.invalidKey(key)
		return
	}
	*dst = v
}

func (p *parser) boolean(key string, dst *bool) {
	raw := p.str(key)
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.invalidKey(key)
		return
	}
	*dst = v
}

func (p *parser) list(key string) []string {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p *parser) err() error {
	var parts []string
	if len(p.missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		parts = append(parts, "invalid environment variables: "+strings.Join(p.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return errors.New(strings.Join(parts, "; "))
}
