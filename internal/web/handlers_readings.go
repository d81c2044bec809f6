package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rfid-ingest/internal/model"
	"github.com/JonMunkholm/rfid-ingest/internal/storage"
)

const (
	defaultListLimit   = 50
	defaultLookupLimit = 20
	maxLimit           = 1000
)

// readingsResponse wraps a list of stored readings.
type readingsResponse struct {
	Success bool                `json:"success"`
	Count   int                 `json:"count"`
	Data    []model.InsertedRow `json:"data"`
}

func writeReadings(w http.ResponseWriter, rows []model.InsertedRow) {
	if rows == nil {
		rows = []model.InsertedRow{}
	}
	writeJSON(w, http.StatusOK, readingsResponse{Success: true, Count: len(rows), Data: rows})
}

// handleListReadings lists the most recent readings.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultListLimit, 1, maxLimit)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	offset, err := intParam(r, "offset", 0, 0, -1)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rows, err := s.db.ListReadings(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err, readStatus(err))
		return
	}
	writeReadings(w, rows)
}

// handleGetReading returns one reading by id.
func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, fmt.Errorf("%w: id %q", errInvalidParam, chi.URLParam(r, "id")), http.StatusBadRequest)
		return
	}

	row, err := s.db.GetReading(r.Context(), id)
	if err != nil {
		respondError(w, r, err, readStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool              `json:"success"`
		Data    model.InsertedRow `json:"data"`
	}{true, row})
}

// handleReadingsByTag lists the most recent readings of one tag.
func (s *Server) handleReadingsByTag(w http.ResponseWriter, r *http.Request) {
	s.lookup(w, r, chi.URLParam(r, "tagId"), s.db.ReadingsByTag)
}

// handleReadingsByDevice lists the most recent readings from one device.
func (s *Server) handleReadingsByDevice(w http.ResponseWriter, r *http.Request) {
	s.lookup(w, r, chi.URLParam(r, "deviceId"), s.db.ReadingsByDevice)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, key string, find func(ctx context.Context, key string, limit int) ([]model.InsertedRow, error)) {
	if strings.TrimSpace(key) == "" {
		respondError(w, r, fmt.Errorf("%w: empty id", errInvalidParam), http.StatusBadRequest)
		return
	}
	limit, err := intParam(r, "limit", defaultLookupLimit, 1, maxLimit)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rows, err := find(r.Context(), key, limit)
	if err != nil {
		respondError(w, r, err, readStatus(err))
		return
	}
	writeReadings(w, rows)
}

// handleReadingsByPeriod lists readings stored between start and end,
// both RFC 3339 and inclusive.
func (s *Server) handleReadingsByPeriod(w http.ResponseWriter, r *http.Request) {
	start, err := timeParam(r, "start")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	end, err := timeParam(r, "end")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if start.After(end) {
		respondError(w, r, fmt.Errorf("%w: start is after end", errInvalidParam), http.StatusBadRequest)
		return
	}
	limit, err := intParam(r, "limit", maxLimit, 1, maxLimit)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rows, err := s.db.ReadingsByPeriod(r.Context(), start, end, limit)
	if err != nil {
		respondError(w, r, err, readStatus(err))
		return
	}
	writeReadings(w, rows)
}

// intParam parses an optional integer query parameter. A negative hi
// means unbounded.
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || (hi >= 0 && n > hi) {
		if hi >= 0 {
			return 0, fmt.Errorf("%w: %s must be between %d and %d", errInvalidParam, name, lo, hi)
		}
		return 0, fmt.Errorf("%w: %s must be at least %d", errInvalidParam, name, lo)
	}
	return n, nil
}

// timeParam parses a required RFC 3339 query parameter.
func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", errInvalidParam, name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339: %v", errInvalidParam, name, err)
	}
	return t, nil
}

// readStatus maps a read error to its HTTP status.
func readStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
