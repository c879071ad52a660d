// Package database manages the PostgreSQL pool behind the postgres session
// store.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options sizes the pool. Zero fields keep pgxpool defaults.
type Options struct {
	URL          string
	MaxConns     int
	MinConns     int
	ConnLifetime time.Duration
	ConnIdleTime time.Duration
}

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// PoolConfig builds the pgxpool configuration for o.
func PoolConfig(o Options) (*pgxpool.Config, error) {
	cfg, err := ParseURL(o.URL)
	if err != nil {
		return nil, err
	}
	if o.MinConns > o.MaxConns && o.MaxConns > 0 {
		return nil, fmt.Errorf("min conns %d exceeds max conns %d", o.MinConns, o.MaxConns)
	}

	if o.MaxConns > 0 {
		cfg.MaxConns = int32(o.MaxConns)
	}
	if o.MinConns > 0 {
		cfg.MinConns = int32(o.MinConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	if o.ConnLifetime > 0 {
		cfg.MaxConnLifetime = o.ConnLifetime
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	if o.ConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.ConnIdleTime
	}
	return cfg, nil
}

// New opens a pool and pings it.
func New(ctx context.Context, o Options) (*DB, error) {
	cfg, err := PoolConfig(o)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
