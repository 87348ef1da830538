// Package testutil provides database and Redis helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/convenios-ui/internal/migrate"
)

// tables lists every application table, children first.
//
//nolint:gochecknoglobals // fixed cleanup order
var tables = []string{"contratos", "usuarios", "auth_credentials", "setores"}

// TestDBConfig locates the Postgres instance used by repository tests.
// The default port matches the test profile of the local compose file; CI sets TEST_DB_PORT.
type TestDBConfig struct {
	Host     string `env:"TEST_DB_HOST"     envDefault:"localhost"`
	Port     string `env:"TEST_DB_PORT"     envDefault:"55432"`
	User     string `env:"TEST_DB_USER"     envDefault:"convenios"`
	Password string `env:"TEST_DB_PASSWORD" envDefault:"convenios"`
	DBName   string `env:"TEST_DB_NAME"     envDefault:"convenios"`
	SSLMode  string `env:"DB_SSL_MODE"      envDefault:"disable"`
	// Ephemeral gives every test its own schema.
	Ephemeral bool `env:"TEST_DB_EPHEMERAL"`
	// Require turns a missing database into a failure instead of a skip.
	Require      bool `env:"TEST_REQUIRE_DB"`
	RequireInfra bool `env:"TEST_REQUIRE_INFRA"`
}

// DefaultTestDBConfig reads TestDBConfig from the environment. Values that fail to
// parse keep their defaults.
func DefaultTestDBConfig() TestDBConfig {
	var cfg TestDBConfig
	_ = env.Parse(&cfg)
	return cfg
}

// DSN returns the connection URL, optionally scoped to schema through search_path.
func (c TestDBConfig) DSN(schema string) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c TestDBConfig) required() bool { return c.Require || c.RequireInfra }

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// SetupAutoDB returns a migrated, empty database for the test, skipping when Postgres
// is unreachable. With TEST_DB_EPHEMERAL set the test gets a private schema that is
// dropped afterwards; otherwise the shared schema is truncated.
func SetupAutoDB(t TestingTB) *sql.DB {
	t.Helper()
	cfg := DefaultTestDBConfig()
	admin := openReachable(t, cfg, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if !cfg.Ephemeral {
		t.Cleanup(func() { closeAndLog(t, "test DB", admin) })
		migrateOrFail(ctx, t, admin)
		truncateAll(ctx, t, admin)
		return admin
	}

	schema := "t_" + uuid.NewString()[:8]
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatalf("create schema %s: %v", schema, err)
	}
	db := openReachable(t, cfg, schema)
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ccancel()
		closeAndLog(t, "schema DB", db)
		if _, err := admin.ExecContext(cctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: drop schema %s: %v", schema, err)
		}
		closeAndLog(t, "admin DB", admin)
	})
	migrateOrFail(ctx, t, db)
	t.Logf("using ephemeral schema %s", schema)
	return db
}

func openReachable(t TestingTB, cfg TestDBConfig, schema string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", cfg.DSN(schema))
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			closeAndLog(t, "test DB", db)
		}
	}
	if err != nil {
		if cfg.required() {
			t.Fatal("test database not available:", err)
		}
		t.Skip("test database not available:", err)
	}
	return db
}

func migrateOrFail(ctx context.Context, t TestingTB, db *sql.DB) {
	t.Helper()
	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("run migrations:", err)
	}
}

func truncateAll(ctx context.Context, t TestingTB, db *sql.DB) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}
}

// SetupTestRedis starts an in-process miniredis server and returns a client bound to it.
// Both are closed when the test ends.
func SetupTestRedis(t TestingTB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		closeAndLog(t, "redis client", client)
		mr.Close()
	})
	return client, mr
}

func closeAndLog(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: failed to close %s: %v", name, err)
	}
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}
