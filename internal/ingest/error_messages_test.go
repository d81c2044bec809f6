package ingest

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "missing input",
			err:         ErrInputMissing,
			wantCode:    "INP001",
			wantMessage: "No readings were provided",
		},
		{
			name:        "malformed body keeps parser detail",
			err:         fmt.Errorf("%w: cannot parse JSON", ErrMalformedBody),
			wantCode:    "INP002",
			wantMessage: "The request body is not valid JSON",
		},
		{
			name:        "unknown mode",
			err:         errors.New(`ingest: unknown mode "atomic"`),
			wantCode:    "INP003",
			wantMessage: "The ingestion mode is not recognised",
		},
		{
			name:        "storage unavailable wins over timeout",
			err:         fmt.Errorf("storage: acquire connection: %w: context deadline exceeded", ErrStorageUnavailable),
			wantCode:    "DB001",
			wantMessage: "No database connection could be obtained",
		},
		{
			name:        "check constraint",
			err:         errors.New(`ERROR: new row for relation "rfid_readings" violates check constraint "x" (SQLSTATE 23514)`),
			wantCode:    "DB003",
			wantMessage: "A value was rejected by the database",
		},
		{
			name:        "request body too large",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "The upload exceeds the size limit",
		},
		{
			name:        "too many batches",
			err:         errors.New("web: too many concurrent batches"),
			wantCode:    "BAT001",
			wantMessage: "Too many batches are being processed",
		},
		{
			name:        "shutting down",
			err:         errors.New("web: server is shutting down"),
			wantCode:    "BAT003",
			wantMessage: "The server is not accepting new batches",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB002",
			wantMessage: "A reading with this key already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrStorageUnavailable, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
