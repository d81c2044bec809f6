// Package ingesttest provides an in-memory ingest.Store for tests.
package ingesttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

// Calls counts the store operations a test triggered.
type Calls struct {
	Single int
	Batch  int
	Tx     int
}

// Store keeps rows in memory. Multi-row inserts are atomic and WithTx
// discards every row written inside a failed transaction, as Postgres would.
type Store struct {
	// Reject, when set, fails any write that includes a reading it returns
	// an error for.
	Reject func(model.Reading) error

	// Unavailable makes every operation fail with ingest.ErrStorageUnavailable.
	Unavailable bool

	// UnavailableAfter, when positive, makes the store unavailable once that
	// many write calls have succeeded.
	UnavailableAfter int

	mu        sync.Mutex
	rows      []model.InsertedRow
	nextID    int64
	succeeded int
	calls     Calls
}

var _ ingest.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// RejectTag returns a Reject func that fails readings with the given tag
// the way a check constraint would.
func RejectTag(tag string) func(model.Reading) error {
	return func(r model.Reading) error {
		if r.TagID == tag {
			return fmt.Errorf(`ERROR: new row for relation "rfid_readings" violates check constraint "rfid_readings_tag_id_check" (tag %q)`, tag)
		}
		return nil
	}
}

// Rows returns a copy of the committed rows.
func (s *Store) Rows() []model.InsertedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.InsertedRow(nil), s.rows...)
}

// Calls returns the operation counters.
func (s *Store) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Store) InsertReading(ctx context.Context, r model.Reading) (model.InsertedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Single++

	rows, err := s.write([]model.Reading{r})
	if err != nil {
		return model.InsertedRow{}, err
	}
	s.rows = append(s.rows, rows...)
	return rows[0], nil
}

func (s *Store) InsertReadings(ctx context.Context, rs []model.Reading) ([]model.InsertedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Batch++

	rows, err := s.write(rs)
	if err != nil {
		return nil, err
	}
	s.rows = append(s.rows, rows...)
	return rows, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx ingest.Writer) error) error {
	s.mu.Lock()
	s.calls.Tx++
	if err := s.availability(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	tx := &txWriter{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, tx.pending...)
	return nil
}

// write checks availability, then assigns rows. The caller holds mu and
// decides where the rows go.
func (s *Store) write(rs []model.Reading) ([]model.InsertedRow, error) {
	if err := s.availability(); err != nil {
		return nil, err
	}
	rows, err := s.assign(rs)
	if err != nil {
		return nil, err
	}
	s.succeeded++
	return rows, nil
}

// assign applies Reject to every reading and hands out ids. Ids used by a
// failed transaction are not reused.
func (s *Store) assign(rs []model.Reading) ([]model.InsertedRow, error) {
	if s.Reject != nil {
		for _, r := range rs {
			if err := s.Reject(r); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now().UTC()
	out := make([]model.InsertedRow, len(rs))
	for i, r := range rs {
		s.nextID++
		out[i] = model.InsertedRow{ID: s.nextID, Reading: r, CreatedAt: now}
	}
	return out, nil
}

func (s *Store) availability() error {
	if s.Unavailable || (s.UnavailableAfter > 0 && s.succeeded >= s.UnavailableAfter) {
		return fmt.Errorf("fake: acquire connection: %w", ingest.ErrStorageUnavailable)
	}
	return nil
}

type txWriter struct {
	store   *Store
	pending []model.InsertedRow
}

func (tx *txWriter) InsertReading(ctx context.Context, r model.Reading) (model.InsertedRow, error) {
	rows, err := tx.InsertReadings(ctx, []model.Reading{r})
	if err != nil {
		return model.InsertedRow{}, err
	}
	return rows[0], nil
}

func (tx *txWriter) InsertReadings(ctx context.Context, rs []model.Reading) ([]model.InsertedRow, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Batch++

	out, err := s.assign(rs)
	if err != nil {
		return nil, err
	}
	tx.pending = append(tx.pending, out...)
	return out, nil
}
