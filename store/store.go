package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is a Store backed by Postgres. Concurrency control for
// stock lives in the database (row locks), not in this process.
type PostgresStore struct {
	DB *sql.DB
}

// PoolConfig bounds the connection pool shared by all requests.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func NewPostgresStore(ctx context.Context, dsn string, pool PoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

//go:embed migrations.sql
var migrationSQL string

// Migrate executes the bootstrap DDL. The statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
