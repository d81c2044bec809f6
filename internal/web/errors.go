package web

// errors.go provides unified error responses for the API.
//
// Every error is logged with its technical detail and the request id, then
// answered with a coded user message from ingest.MapError so support can
// find the log line from what the client saw.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
	"github.com/JonMunkholm/rfid-ingest/internal/logging"
)

var (
	errNoFile          = errors.New("web: no file provided")
	errUnsupportedFile = errors.New("web: unsupported file type, expected text/plain")
	errInvalidParam    = errors.New("web: invalid parameter")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user message with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := ingest.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// ingestErrorStatus maps a fatal pipeline error to its HTTP status.
func ingestErrorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ingest.ErrStorageUnavailable),
		errors.Is(err, ErrTooManyBatches),
		errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, ingest.ErrInputMissing),
		errors.Is(err, ingest.ErrMalformedBody),
		errors.Is(err, errNoFile),
		errors.Is(err, errInvalidParam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// reportStatus maps a batch outcome to the response status.
func reportStatus(rep *ingest.BatchReport) int {
	switch rep.Status {
	case ingest.StatusSuccess:
		return http.StatusCreated
	case ingest.StatusPartialSuccess:
		return http.StatusMultiStatus
	default:
		return http.StatusUnprocessableEntity
	}
}
