// Package dbtest connects repository tests to a real Postgres described by DB_*_TEST variables.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/art-gallery/internal/config"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

var (
	once    sync.Once
	pool    *pgxpool.Pool
	openErr error
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config returns the test database settings. ok is false when DB_HOST_TEST is unset.
func Config() (config.PostgresConfig, bool) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		return config.PostgresConfig{}, false
	}

	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..", "..")

	return config.PostgresConfig{
		Host:           host,
		Port:           envOr("DB_PORT_TEST", "5432"),
		User:           envOr("DB_USER_TEST", "postgres"),
		Password:       envOr("DB_PASSWORD_TEST", "123456"),
		DBName:         envOr("DB_NAME_TEST", "gallery_test"),
		SSLMode:        envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns:       5,
		MinConns:       1,
		MigrationsPath: filepath.Join(root, "migrations"),
	}, true
}

// Pool returns a migrated connection pool shared by the test binary, or skips tb.
func Pool(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	cfg, ok := Config()
	if !ok {
		tb.Skip("DB_HOST_TEST is not set, skipping repository test")
	}

	once.Do(func() {
		if err := db.ApplyMigrations(cfg); err != nil {
			openErr = fmt.Errorf("failed to migrate test database: %w", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pg, err := db.New(ctx, cfg)
		if err != nil {
			openErr = err
			return
		}
		pool = pg.Pool
		log.Info().Msg("Test Database connection established.")
	})
	require.NoError(tb, openErr, "failed to connect to test database")

	return pool
}

// Truncate empties tables and registers the same cleanup for the end of the test.
func Truncate(tb testing.TB, p *pgxpool.Pool, tables ...string) {
	tb.Helper()

	stmt := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"
	run := func() {
		_, err := p.Exec(context.Background(), stmt)
		require.NoError(tb, err, "failed to truncate %v", tables)
	}
	run()
	tb.Cleanup(run)
}
