package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
)

// ErrUnavailable wraps every connection acquisition failure.
var ErrUnavailable = ingest.ErrStorageUnavailable

// ErrNotFound is returned when a requested reading does not exist.
var ErrNotFound = errors.New("storage: not found")

// IsConstraintViolation reports whether err is a Postgres integrity
// constraint violation (SQLSTATE class 23).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return len(pgErr.Code) == 5 && pgErr.Code[:2] == "23"
}
