package web

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
	"github.com/JonMunkholm/rfid-ingest/internal/storage"
)

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Example     any    `json:"example,omitempty"`
}

var endpoints = []endpoint{
	{Method: "GET", Path: "/api/health", Description: "Process health"},
	{Method: "GET", Path: "/api/health/db", Description: "Database connectivity"},
	{Method: "GET", Path: "/api/status", Description: "Database and batch limiter status"},
	{
		Method:      "POST",
		Path:        "/api/rfid/readings?mode=best_effort",
		Description: "Ingest a JSON reading or array of readings (mode: best_effort or transactional)",
		Example: []map[string]any{
			{"tagId": "E200-3412-0001", "deviceId": "dock-reader-01", "timestamp": "2024-05-01T10:00:00Z", "latitude": 59.91, "longitude": 10.75},
			{"tagId": "E200-3412-0002", "deviceId": "dock-reader-01", "altitude": 12.5},
		},
	},
	{
		Method:      "POST",
		Path:        "/api/rfid/upload?mode=transactional",
		Description: `Ingest a text file in the "file" form field, one JSON reading per line`,
		Example:     `{"tagId":"E200-3412-0001","deviceId":"dock-reader-01"}` + "\n" + `{"tagId":"E200-3412-0002","deviceId":"dock-reader-02"}`,
	},
	{Method: "GET", Path: "/api/rfid/readings?limit=50&offset=0", Description: "Most recent readings"},
	{Method: "GET", Path: "/api/rfid/readings/{id}", Description: "One reading by id"},
	{Method: "GET", Path: "/api/rfid/tags/{tagId}?limit=20", Description: "Most recent readings of a tag"},
	{Method: "GET", Path: "/api/rfid/devices/{deviceId}?limit=20", Description: "Most recent readings from a device"},
	{Method: "GET", Path: "/api/rfid/period?start=2024-05-01T00:00:00Z&end=2024-05-02T00:00:00Z", Description: "Readings stored in a time range (RFC 3339)"},
}

// handleIndex lists the API endpoints with example bodies.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   s.cfg.Telemetry.ServiceName,
		"modes":     []ingest.Mode{ingest.BestEffort, ingest.Transactional},
		"endpoints": endpoints,
	})
}

type memoryStats struct {
	AllocMB      float64 `json:"allocMb"`
	HeapInUseMB  float64 `json:"heapInUseMb"`
	SysMB        float64 `json:"sysMb"`
	NumGC        uint32  `json:"numGc"`
	NumGoroutine int     `json:"numGoroutine"`
}

// handleHealth reports process liveness. It does not touch the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"timestamp":     time.Now().UTC(),
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
		"memory": memoryStats{
			AllocMB:      toMB(m.Alloc),
			HeapInUseMB:  toMB(m.HeapInuse),
			SysMB:        toMB(m.Sys),
			NumGC:        m.NumGC,
			NumGoroutine: runtime.NumGoroutine(),
		},
	})
}

func toMB(b uint64) float64 {
	return float64(b) / (1 << 20)
}

// handleHealthDB pings the database and returns its clock.
func (s *Server) handleHealthDB(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", storage.ErrUnavailable, err), http.StatusServiceUnavailable)
		return
	}
	now, err := s.db.Now(r.Context())
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", storage.ErrUnavailable, err), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"serverTime": now,
		"latencyMs":  time.Since(start).Milliseconds(),
	})
}

// handleStatus reports the database server, pool and batch limiter.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	dbStatus, err := s.db.Status(r.Context())
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", storage.ErrUnavailable, err), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
		"database":      dbStatus,
		"batches":       s.limiter.Status(),
	})
}
