package ingest

import (
	"context"
	"errors"

	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

// ErrInputMissing is returned when no payload was supplied at all.
// An empty payload is not missing: it produces a report with zero lines.
var ErrInputMissing = errors.New("ingest: no input provided")

// ErrMalformedBody is returned when a structured request body is not JSON.
var ErrMalformedBody = errors.New("ingest: request body is not valid JSON")

// ErrStorageUnavailable is returned when the store cannot hand out a
// connection. Store implementations wrap their acquisition errors with it.
var ErrStorageUnavailable = errors.New("ingest: storage unavailable")

// Writer persists readings. Both the store itself and the handle passed to
// WithTx satisfy it.
type Writer interface {
	// InsertReading writes one reading and returns the stored row.
	InsertReading(ctx context.Context, r model.Reading) (model.InsertedRow, error)

	// InsertReadings writes all readings in a single statement and returns
	// the stored rows in input order: row i is the row stored for rs[i].
	// The statement is atomic.
	InsertReadings(ctx context.Context, rs []model.Reading) ([]model.InsertedRow, error)
}

// Store is the storage collaborator used by the pipeline.
type Store interface {
	Writer

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back on any error.
	WithTx(ctx context.Context, fn func(tx Writer) error) error
}
