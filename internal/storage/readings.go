package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

const returningColumns = "id, tag_id, device_id, read_at, latitude, longitude, altitude, created_at"

const insertOneSQL = "INSERT INTO rfid_readings (tag_id, device_id, read_at, latitude, longitude, altitude) " +
	"VALUES ($1, $2, $3, $4, $5, $6) RETURNING " + returningColumns

// insertBatchSQL inserts one row per element of six parallel arrays.
// Postgres does not promise that a multi-row INSERT returns rows in input
// order, so ids are drawn per input ordinal before the insert and every
// returned row carries the ordinal of the element it was built from.
// The input CTE calls nextval and is referenced twice, so it is
// materialized once.
const insertBatchSQL = `WITH input AS (
	SELECT u.ord, nextval(pg_get_serial_sequence('rfid_readings', 'id')) AS id,
		u.tag_id, u.device_id, u.read_at, u.latitude, u.longitude, u.altitude
	FROM unnest($1::text[], $2::text[], $3::text[], $4::float8[], $5::float8[], $6::float8[])
		WITH ORDINALITY AS u(tag_id, device_id, read_at, latitude, longitude, altitude, ord)
), inserted AS (
	INSERT INTO rfid_readings (id, tag_id, device_id, read_at, latitude, longitude, altitude)
	SELECT id, tag_id, device_id, read_at, latitude, longitude, altitude FROM input
	RETURNING ` + returningColumns + `
)
SELECT input.ord, inserted.* FROM inserted JOIN input USING (id) ORDER BY input.ord`

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// queries runs reading statements against a connection or a transaction.
type queries struct {
	db DBTX
}

func (q queries) InsertReading(ctx context.Context, r model.Reading) (model.InsertedRow, error) {
	row, err := scanRow(q.db.QueryRow(ctx, insertOneSQL, readingArgs(r)...))
	if err != nil {
		return model.InsertedRow{}, fmt.Errorf("storage: insert reading: %w", err)
	}
	return row, nil
}

func (q queries) InsertReadings(ctx context.Context, rs []model.Reading) ([]model.InsertedRow, error) {
	if len(rs) == 0 {
		return nil, nil
	}

	rows, err := q.db.Query(ctx, insertBatchSQL, batchArgs(rs)...)
	if err != nil {
		return nil, fmt.Errorf("storage: insert readings: %w", err)
	}
	got, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orderedRow, error) {
		var o orderedRow
		err := row.Scan(
			&o.ord,
			&o.row.ID,
			&o.row.TagID,
			&o.row.DeviceID,
			&o.row.Timestamp,
			&o.row.Latitude,
			&o.row.Longitude,
			&o.row.Altitude,
			&o.row.CreatedAt,
		)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: insert readings: %w", err)
	}
	out, err := byOrdinal(len(rs), got)
	if err != nil {
		return nil, fmt.Errorf("storage: insert readings: %w", err)
	}
	return out, nil
}

// orderedRow is an inserted row tagged with the 1-based position of the
// reading it was built from.
type orderedRow struct {
	ord int64
	row model.InsertedRow
}

// byOrdinal places rows by their ordinal. Every position in 1..n must be
// filled exactly once.
func byOrdinal(n int, rows []orderedRow) ([]model.InsertedRow, error) {
	if len(rows) != n {
		return nil, fmt.Errorf("%d rows returned for %d readings", len(rows), n)
	}
	out := make([]model.InsertedRow, n)
	filled := make([]bool, n)
	for _, r := range rows {
		if r.ord < 1 || r.ord > int64(n) {
			return nil, fmt.Errorf("row ordinal %d outside 1..%d", r.ord, n)
		}
		i := r.ord - 1
		if filled[i] {
			return nil, fmt.Errorf("row ordinal %d returned twice", r.ord)
		}
		out[i] = r.row
		filled[i] = true
	}
	return out, nil
}

// InsertReading writes a single reading on a pooled connection.
func (db *DB) InsertReading(ctx context.Context, r model.Reading) (model.InsertedRow, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return model.InsertedRow{}, err
	}
	defer conn.Release()

	return queries{db: conn}.InsertReading(ctx, r)
}

// InsertReadings writes all readings in one INSERT statement on a pooled
// connection. Either every row is written or none is.
func (db *DB) InsertReadings(ctx context.Context, rs []model.Reading) ([]model.InsertedRow, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return queries{db: conn}.InsertReadings(ctx, rs)
}

// WithTx runs fn in a transaction on a single pooled connection. It commits
// when fn returns nil and rolls back when fn returns an error or panics.
func (db *DB) WithTx(ctx context.Context, fn func(tx ingest.Writer) error) error {
	conn, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(queries{db: tx}); err != nil {
		if IsConstraintViolation(err) {
			db.logger.Debug("storage: transaction rolled back on constraint violation", "error", err)
		} else {
			db.logger.Warn("storage: transaction rolled back", "error", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit transaction: %w", err)
	}
	committed = true
	return nil
}

// batchArgs returns the readings as the six column arrays of insertBatchSQL.
func batchArgs(rs []model.Reading) []any {
	tags := make([]string, len(rs))
	devices := make([]string, len(rs))
	readAt := make([]*string, len(rs))
	lat := make([]*float64, len(rs))
	lon := make([]*float64, len(rs))
	alt := make([]*float64, len(rs))
	for i, r := range rs {
		tags[i] = r.TagID
		devices[i] = r.DeviceID
		readAt[i] = r.Timestamp
		lat[i] = r.Latitude
		lon[i] = r.Longitude
		alt[i] = r.Altitude
	}
	return []any{tags, devices, readAt, lat, lon, alt}
}

// readingArgs returns the bind parameters of insertOneSQL for one reading.
func readingArgs(r model.Reading) []any {
	return []any{r.TagID, r.DeviceID, r.Timestamp, r.Latitude, r.Longitude, r.Altitude}
}

// scanRow scans a row selected with returningColumns.
func scanRow(row pgx.Row) (model.InsertedRow, error) {
	var r model.InsertedRow
	err := row.Scan(
		&r.ID,
		&r.TagID,
		&r.DeviceID,
		&r.Timestamp,
		&r.Latitude,
		&r.Longitude,
		&r.Altitude,
		&r.CreatedAt,
	)
	return r, err
}
