package ingest

import (
	"context"
	"errors"

	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

// DefaultChunkSize is the number of readings written per multi-row INSERT
// when no chunk size is configured.
const DefaultChunkSize = 1000

// Inserter writes validated readings to a Store.
type Inserter struct {
	store     Store
	chunkSize int
}

// NewInserter creates an Inserter. A non-positive chunkSize uses
// DefaultChunkSize.
func NewInserter(store Store, chunkSize int) *Inserter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Inserter{store: store, chunkSize: chunkSize}
}

// Insert writes the valid outcomes in the given mode and returns one
// outcome per record, or in Transactional mode a single BatchRolledBack
// outcome when any write fails. Invalid outcomes in valid are ignored.
//
// The only error returned is ErrStorageUnavailable, and only when nothing
// from this batch has been written yet. Writes are not cancelled by ctx.
func (in *Inserter) Insert(ctx context.Context, valid []ValidationOutcome, mode Mode) ([]InsertionOutcome, error) {
	recs := make([]ValidationOutcome, 0, len(valid))
	for _, v := range valid {
		if v.Valid() {
			recs = append(recs, v)
		}
	}
	if len(recs) == 0 {
		return nil, nil
	}

	ctx = context.WithoutCancel(ctx)

	if mode == Transactional {
		return in.insertTransactional(ctx, recs)
	}
	return in.insertBestEffort(ctx, recs)
}

// bestEffort tracks whether any write of the batch has landed. Once one
// has, an unavailable store is recorded per record instead of aborting.
type bestEffort struct {
	store Store
	wrote bool
	out   []InsertionOutcome
}

func (in *Inserter) insertBestEffort(ctx context.Context, recs []ValidationOutcome) ([]InsertionOutcome, error) {
	be := &bestEffort{store: in.store, out: make([]InsertionOutcome, 0, len(recs))}

	if len(recs) == 1 {
		if err := be.insertOne(ctx, recs[0]); err != nil {
			return nil, err
		}
		return be.out, nil
	}

	for _, chunk := range chunks(recs, in.chunkSize) {
		if err := be.insertChunk(ctx, chunk); err != nil {
			return nil, err
		}
	}
	return be.out, nil
}

func (be *bestEffort) insertOne(ctx context.Context, rec ValidationOutcome) error {
	row, err := be.store.InsertReading(ctx, rec.Reading)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) && !be.wrote {
			return err
		}
		be.out = append(be.out, failed(rec, err))
		return nil
	}
	be.wrote = true
	be.out = append(be.out, inserted(rec, row))
	return nil
}

// insertChunk writes a chunk as one statement. When the statement fails the
// chunk is retried record by record to isolate the failing records.
func (be *bestEffort) insertChunk(ctx context.Context, chunk []ValidationOutcome) error {
	if len(chunk) == 1 {
		return be.insertOne(ctx, chunk[0])
	}

	rows, err := be.store.InsertReadings(ctx, readingsOf(chunk))
	if err == nil {
		be.wrote = true
		for i, rec := range chunk {
			be.out = append(be.out, inserted(rec, rows[i]))
		}
		return nil
	}

	if errors.Is(err, ErrStorageUnavailable) {
		if !be.wrote {
			return err
		}
		for _, rec := range chunk {
			be.out = append(be.out, failed(rec, err))
		}
		return nil
	}

	for _, rec := range chunk {
		if err := be.insertOne(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (in *Inserter) insertTransactional(ctx context.Context, recs []ValidationOutcome) ([]InsertionOutcome, error) {
	if len(recs) == 1 {
		row, err := in.store.InsertReading(ctx, recs[0].Reading)
		if errors.Is(err, ErrStorageUnavailable) {
			return nil, err
		}
		if err != nil {
			return []InsertionOutcome{rolledBack(err)}, nil
		}
		return []InsertionOutcome{inserted(recs[0], row)}, nil
	}

	var rows []model.InsertedRow
	err := in.store.WithTx(ctx, func(tx Writer) error {
		rows = rows[:0]
		for _, chunk := range chunks(recs, in.chunkSize) {
			written, err := tx.InsertReadings(ctx, readingsOf(chunk))
			if err != nil {
				return err
			}
			rows = append(rows, written...)
		}
		return nil
	})
	if errors.Is(err, ErrStorageUnavailable) {
		return nil, err
	}
	if err != nil {
		return []InsertionOutcome{rolledBack(err)}, nil
	}

	out := make([]InsertionOutcome, len(recs))
	for i, rec := range recs {
		out[i] = inserted(rec, rows[i])
	}
	return out, nil
}

func chunks(recs []ValidationOutcome, size int) [][]ValidationOutcome {
	out := make([][]ValidationOutcome, 0, (len(recs)+size-1)/size)
	for start := 0; start < len(recs); start += size {
		end := min(start+size, len(recs))
		out = append(out, recs[start:end])
	}
	return out
}

func readingsOf(recs []ValidationOutcome) []model.Reading {
	rs := make([]model.Reading, len(recs))
	for i, rec := range recs {
		rs[i] = rec.Reading
	}
	return rs
}

func inserted(rec ValidationOutcome, row model.InsertedRow) InsertionOutcome {
	return InsertionOutcome{Result: Inserted, Index: rec.Index, Row: &row}
}

func failed(rec ValidationOutcome, err error) InsertionOutcome {
	r := rec.Reading
	return InsertionOutcome{Result: InsertFailed, Index: rec.Index, Reading: &r, Error: err.Error()}
}

func rolledBack(err error) InsertionOutcome {
	return InsertionOutcome{Result: BatchRolledBack, Index: -1, Error: err.Error()}
}
