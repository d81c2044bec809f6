package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// PoolStats is a snapshot of the connection pool.
type PoolStats struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
	Max      int32 `json:"max"`
}

// Status describes the database server and the pool.
type Status struct {
	ServerVersion     string    `json:"serverVersion"`
	MaxConnections    int       `json:"maxConnections"`
	ActiveConnections int       `json:"activeConnections"`
	Pool              PoolStats `json:"pool"`
}

// Now returns the database server clock.
func (db *DB) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := db.pool.QueryRow(ctx, "SELECT now()").Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("storage: server time: %w", err)
	}
	return now, nil
}

// Status queries server version and connection counts.
func (db *DB) Status(ctx context.Context) (Status, error) {
	var st Status

	if err := db.pool.QueryRow(ctx, "SHOW server_version").Scan(&st.ServerVersion); err != nil {
		return Status{}, fmt.Errorf("storage: server version: %w", err)
	}

	var maxConns string
	if err := db.pool.QueryRow(ctx, "SHOW max_connections").Scan(&maxConns); err != nil {
		return Status{}, fmt.Errorf("storage: max connections: %w", err)
	}
	n, err := strconv.Atoi(maxConns)
	if err != nil {
		return Status{}, fmt.Errorf("storage: parse max connections %q: %w", maxConns, err)
	}
	st.MaxConnections = n

	err = db.pool.QueryRow(ctx,
		"SELECT count(*)::int FROM pg_stat_activity WHERE datname = current_database()",
	).Scan(&st.ActiveConnections)
	if err != nil {
		return Status{}, fmt.Errorf("storage: active connections: %w", err)
	}

	stat := db.pool.Stat()
	st.Pool = PoolStats{
		Total:    stat.TotalConns(),
		Idle:     stat.IdleConns(),
		Acquired: stat.AcquiredConns(),
		Max:      stat.MaxConns(),
	}

	return st, nil
}
