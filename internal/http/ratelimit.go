package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

// LocalRateLimit limits each client IP to limit requests per window within this process.
func LocalRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			newResponder(nil).writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{
				ErrorCode: "RATE_LIMITED",
				Message:   statusMessage(http.StatusTooManyRequests),
			})
		}),
	)
}

// RedisRateLimiter is a fixed-window limiter shared by every instance pointing at the same
// Redis server.
type RedisRateLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// NewRedisRateLimiter allows limit requests per client per window. Keys are namespaced by prefix.
func NewRedisRateLimiter(client redis.Scripter, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ebilik:rl"
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, prefix: prefix, now: time.Now}
}

// Allow counts one request for client and reports whether it fits in the current window.
func (l *RedisRateLimiter) Allow(ctx context.Context, client string) (bool, error) {
	windowID := l.now().UnixMilli() / l.window.Milliseconds()
	key := fmt.Sprintf("%s:%s:%d", l.prefix, client, windowID)

	res, err := fixedWindowScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Result()
	if err != nil {
		return false, err
	}

	var count int64
	switch v := res.(type) {
	case int64:
		count = v
	case string:
		if count, err = strconv.ParseInt(v, 10, 64); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unexpected rate limit script result %T", res)
	}
	return count <= int64(l.limit), nil
}

// Middleware enforces the limit per client IP. When Redis fails the request passes if
// failOpen is set and is rejected with 503 otherwise.
func (l *RedisRateLimiter) Middleware(logger *slog.Logger, failOpen bool) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "redis rate limiter unavailable", "error", err, "fail_open", failOpen)
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, errorResponse{
					ErrorCode: "RATE_LIMITER_UNAVAILABLE",
					Message:   "rate limiter unavailable",
				})
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
				responder.writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{
					ErrorCode: "RATE_LIMITED",
					Message:   statusMessage(http.StatusTooManyRequests),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
