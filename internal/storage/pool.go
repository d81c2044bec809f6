// Package storage provides the PostgreSQL storage layer for RFID readings.
//
// It owns the pgx connection pool, writes readings one at a time or as a
// single multi-row INSERT, runs transactional batches and serves the read
// and health queries used by the HTTP layer.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxotel"

	"github.com/JonMunkholm/rfid-ingest/internal/config"
	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
)

// DefaultAcquireTimeout bounds how long a write waits for a pooled connection.
const DefaultAcquireTimeout = 10 * time.Second

// DB wraps a pgxpool.Pool. It satisfies ingest.Store.
type DB struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	logger         *slog.Logger
}

var _ ingest.Store = (*DB)(nil)

// New parses the DSN, applies the pool settings from cfg and verifies the
// connection with a ping.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	if cfg.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	poolCfg.ConnConfig.Tracer = &pgxotel.QueryTracer{
		Name: "rfid-storage",
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return NewFromPool(pool, cfg.AcquireTimeout, logger), nil
}

// NewFromPool wraps an existing pool. A non-positive acquireTimeout falls
// back to DefaultAcquireTimeout.
func NewFromPool(pool *pgxpool.Pool, acquireTimeout time.Duration, logger *slog.Logger) *DB {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{
		pool:           pool,
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// acquire takes a connection from the pool, waiting at most acquireTimeout.
// Any failure is reported as ErrUnavailable.
func (db *DB) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, db.acquireTimeout)
	defer cancel()

	conn, err := db.pool.Acquire(actx)
	if err != nil {
		return nil, fmt.Errorf("storage: acquire connection: %w: %w", ErrUnavailable, err)
	}
	return conn, nil
}
