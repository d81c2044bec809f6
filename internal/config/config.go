// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// MaxChunkSize bounds INGEST_CHUNK_SIZE. Six bind parameters per reading
// keep a chunk of this size under the Postgres parameter limit.
const MaxChunkSize = 10000

// Config holds all service configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Ingest    IngestConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 90s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including batch drain (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30s)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30s"`

	// AcquireTimeout is how long a write waits for a pooled connection
	// before the store is reported unavailable (default: 10s)
	AcquireTimeout time.Duration `env:"DB_ACQUIRE_TIMEOUT" default:"10s"`

	// StatementTimeout is the server-side statement_timeout, 0 to disable (default: 30s)
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" default:"30s"`
}

// IngestConfig holds batch ingestion settings.
type IngestConfig struct {
	// MaxBodySize is the maximum request body or upload size in bytes (default: 10MB)
	MaxBodySize int64 `env:"INGEST_MAX_BODY_SIZE" default:"10485760"`

	// ChunkSize is the number of readings per multi-row INSERT (default: 1000)
	ChunkSize int `env:"INGEST_CHUNK_SIZE" default:"1000"`

	// MaxConcurrent is the number of batches processed at once (default: 10)
	MaxConcurrent int `env:"INGEST_MAX_CONCURRENT" default:"10"`

	// MaxWaitTime is how long a batch waits for a processing slot (default: 30s)
	MaxWaitTime time.Duration `env:"INGEST_MAX_WAIT_TIME" default:"30s"`

	// DefaultMode is the mode for structured submissions (default: best_effort)
	DefaultMode string `env:"INGEST_DEFAULT_MODE" default:"best_effort"`

	// UploadMode is the mode for file uploads (default: transactional)
	UploadMode string `env:"INGEST_UPLOAD_MODE" default:"transactional"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// AllowedOrigins is a comma-separated list of CORS origins; "*" allows any (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port; empty disables export
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Insecure sends OTLP over plain HTTP (default: false)
	Insecure bool `env:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`

	// ServiceName is reported as service.name (default: rfid-ingest)
	ServiceName string `env:"OTEL_SERVICE_NAME" default:"rfid-ingest"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
