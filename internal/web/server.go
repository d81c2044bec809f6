// Package web provides the HTTP API for RFID reading ingestion.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/rfid-ingest/internal/config"
	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
	"github.com/JonMunkholm/rfid-ingest/internal/model"
	"github.com/JonMunkholm/rfid-ingest/internal/storage"
	"github.com/JonMunkholm/rfid-ingest/internal/web/middleware"
)

// Database is everything the API needs from storage. *storage.DB
// satisfies it.
type Database interface {
	ingest.Store

	GetReading(ctx context.Context, id int64) (model.InsertedRow, error)
	ListReadings(ctx context.Context, limit, offset int) ([]model.InsertedRow, error)
	ReadingsByTag(ctx context.Context, tagID string, limit int) ([]model.InsertedRow, error)
	ReadingsByDevice(ctx context.Context, deviceID string, limit int) ([]model.InsertedRow, error)
	ReadingsByPeriod(ctx context.Context, start, end time.Time, limit int) ([]model.InsertedRow, error)

	Ping(ctx context.Context) error
	Now(ctx context.Context) (time.Time, error)
	Status(ctx context.Context) (storage.Status, error)
}

// Server is the HTTP server for the ingestion API.
type Server struct {
	cfg      *config.Config
	db       Database
	pipeline *ingest.Pipeline
	limiter  *BatchLimiter
	router   *chi.Mux
	server   *http.Server
	started  time.Time
}

// NewServer creates a server whose batches are written to db.
func NewServer(cfg *config.Config, db Database) *Server {
	s := &Server{
		cfg:      cfg,
		db:       db,
		pipeline: ingest.NewPipeline(db, ingest.Config{ChunkSize: cfg.Ingest.ChunkSize}),
		limiter:  NewBatchLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime),
		router:   chi.NewRouter(),
		started:  time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Tracing)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(middleware.CORS(s.cfg.Security.AllowedOrigins))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleIndex)

		// Health
		r.Get("/health", s.handleHealth)
		r.Get("/health/db", s.handleHealthDB)
		r.Get("/status", s.handleStatus)

		r.Route("/rfid", func(r chi.Router) {
			// Ingestion holds a batch slot for the whole request.
			r.With(s.limiter.Limit).Post("/readings", s.handleIngestReadings)
			r.With(s.limiter.Limit).Post("/upload", s.handleUpload)

			// Reads
			r.Get("/readings", s.handleListReadings)
			r.Get("/readings/{id}", s.handleGetReading)
			r.Get("/tags/{tagId}", s.handleReadingsByTag)
			r.Get("/devices/{deviceId}", s.handleReadingsByDevice)
			r.Get("/period", s.handleReadingsByPeriod)
		})
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	slog.Info("starting server", "addr", sc.Addr())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops admitting batches, stops the listener and waits for
// in-flight batches to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Close()

	var errs []error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	status := s.limiter.Status()
	if status.Active > 0 {
		slog.Info("waiting for batches to finish", "active", status.Active)
	}
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Limiter returns the batch limiter.
func (s *Server) Limiter() *BatchLimiter {
	return s.limiter
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Cache-Control", "no-store")

			// The API serves JSON only.
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}

			next.ServeHTTP(w, r)
		})
	}
}
