// Package postgres provides a PostgreSQL-backed taskdb.Store, the reference
// adapter for production and multi-worker deployments (ORCHESTRATOR_TEST_MODE
// unset selects this adapter over internal/taskdb/memory).
package postgres

import (
	"context"
	stdsql "database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql
)

// Store is the Postgres-backed taskdb.Store implementation.
type Store struct {
	db           *stdsql.DB
	databaseName string
}

// NewStore opens a connection pool against cfg, runs embedded migrations,
// and returns a ready-to-use Store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	db, err := stdsql.Open("pgx", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, databaseName: cfg.Database}, nil
}

// NewStoreFromDB wraps an already-open, already-migrated *sql.DB — used by
// tests that manage their own container/connection lifecycle.
func NewStoreFromDB(db *stdsql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection pool, for health checks.
func (s *Store) DB() *stdsql.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
