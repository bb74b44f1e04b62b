package testfixtures

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/persistence/postgres"
)

// PostgresDSNEnv names the variable that enables Postgres-backed tests.
const PostgresDSNEnv = "EBILIK_TEST_POSTGRES_DSN"

var schemaCounter uint64

// NewPostgresStore opens a store in a throwaway schema of the database named by
// EBILIK_TEST_POSTGRES_DSN and drops the schema on cleanup. It skips the test when the
// variable is unset.
func NewPostgresStore(tb testing.TB) persistence.Store {
	tb.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		tb.Skipf("%s not set", PostgresDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := fmt.Sprintf("ebilik_test_%d_%d", os.Getpid(), atomic.AddUint64(&schemaCounter, 1))
	admin, err := pgx.Connect(ctx, dsn)
	if err != nil {
		tb.Fatalf("connect postgres: %v", err)
	}
	defer admin.Close(ctx)

	ident := pgx.Identifier{schema}.Sanitize()
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+ident); err != nil {
		tb.Fatalf("create schema: %v", err)
	}
	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return
		}
		defer conn.Close(ctx)
		_, _ = conn.Exec(ctx, "DROP SCHEMA "+ident+" CASCADE")
	})

	scoped, err := withSearchPath(dsn, schema)
	if err != nil {
		tb.Fatalf("scope dsn: %v", err)
	}
	store, err := postgres.Open(ctx, scoped)
	if err != nil {
		tb.Fatalf("open postgres store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// withSearchPath adds a search_path runtime parameter to a URL-style DSN.
func withSearchPath(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("%s must be a postgres:// URL", PostgresDSNEnv)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
