package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

// Schema is the DDL for the rfid_readings table. The service does not apply
// it; it is exported for provisioning scripts and integration tests.
//
//go:embed schema.sql
var Schema string

const selectReadings = "SELECT " + returningColumns + " FROM rfid_readings"

// GetReading returns the reading with the given id, or ErrNotFound.
func (db *DB) GetReading(ctx context.Context, id int64) (model.InsertedRow, error) {
	row, err := scanRow(db.pool.QueryRow(ctx, selectReadings+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.InsertedRow{}, ErrNotFound
	}
	if err != nil {
		return model.InsertedRow{}, fmt.Errorf("storage: get reading %d: %w", id, err)
	}
	return row, nil
}

// ListReadings returns the most recently stored readings first.
func (db *DB) ListReadings(ctx context.Context, limit, offset int) ([]model.InsertedRow, error) {
	return db.selectRows(ctx, "list readings",
		selectReadings+" ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset)
}

// ReadingsByTag returns the latest readings of one tag.
func (db *DB) ReadingsByTag(ctx context.Context, tagID string, limit int) ([]model.InsertedRow, error) {
	return db.selectRows(ctx, "readings by tag",
		selectReadings+" WHERE tag_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		tagID, limit)
}

// ReadingsByDevice returns the latest readings reported by one device.
func (db *DB) ReadingsByDevice(ctx context.Context, deviceID string, limit int) ([]model.InsertedRow, error) {
	return db.selectRows(ctx, "readings by device",
		selectReadings+" WHERE device_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		deviceID, limit)
}

// ReadingsByPeriod returns readings stored between start and end, inclusive.
func (db *DB) ReadingsByPeriod(ctx context.Context, start, end time.Time, limit int) ([]model.InsertedRow, error) {
	return db.selectRows(ctx, "readings by period",
		selectReadings+" WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at DESC, id DESC LIMIT $3",
		start, end, limit)
}

func (db *DB) selectRows(ctx context.Context, op, sql string, args ...any) ([]model.InsertedRow, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.InsertedRow, error) {
		return scanRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", op, err)
	}
	return out, nil
}
