// Package backend holds the client plumbing for the hosted Postgres
// service: connection setup, service-token auth, and the feature-flag
// table reader. The partnership store built on top lives in
// internal/partnership.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config holds backend connection settings.
type Config struct {
	DSN      string
	MaxConns int
	Timeout  time.Duration
}

// Connect opens a Postgres connection pool and verifies it with a ping.
func Connect(cfg Config) (*sqlx.DB, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open backend db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping backend db: %w", err)
	}
	return db, nil
}

// Online reports whether the backend is currently reachable. Used as the
// connectivity probe by the feature-flag fetch path.
func Online(db *sqlx.DB) bool {
	if db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return db.PingContext(ctx) == nil
}
