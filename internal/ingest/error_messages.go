package ingest

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference.
//
// # Error Codes Reference
//
// # Input Errors (INP001-INP099)
//
//	INP001 - No input: No readings were provided
//	         Action: Send a JSON object, a JSON array or a text file with one object per line
//	         Patterns: "no input provided"
//
//	INP002 - Malformed body: The request body is not valid JSON
//	         Action: Check the body with a JSON validator
//	         Patterns: "not valid json"
//
//	INP003 - Unknown mode: The ingestion mode is not recognised
//	         Action: Use mode=best_effort or mode=transactional
//	         Patterns: "unknown mode"
//
//	INP004 - Invalid parameter: A query parameter is invalid
//	         Action: Check the parameter format in the API index
//	         Patterns: "invalid parameter"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: The upload exceeds the size limit
//	          Action: Split the file into smaller files
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unsupported file: Only plain text files are accepted
//	          Action: Upload a .txt file with one JSON object per line
//	          Patterns: "unsupported file type"
//
//	FILE003 - No file: No file was attached
//	          Action: Attach the file in the "file" form field
//	          Patterns: "no file provided"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Storage unavailable: No database connection could be obtained
//	        Action: Please try again in a few moments
//	        Patterns: "storage unavailable"
//
//	DB002 - Duplicate key: A reading with this key already exists
//	        Action: Remove the duplicate readings and resubmit
//	        Patterns: "duplicate key", "violates unique"
//
//	DB003 - Check constraint: A value was rejected by the database
//	        Action: Review the failed readings for out-of-range values
//	        Patterns: "violates check constraint"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
//	DB005 - Timeout: Operation timed out
//	        Action: Send a smaller batch or try again later
//	        Patterns: "timeout", "context deadline exceeded"
//
//	DB006 - Not found: The requested reading does not exist
//	        Action: Check the reading id
//	        Patterns: "not found"
//
// # Batch Errors (BAT001-BAT099)
//
//	BAT001 - System busy: Too many batches are being processed
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent batches"
//
//	BAT002 - Request cancelled: The request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	BAT003 - Shutting down: The server is not accepting new batches
//	         Action: Please try again in a few moments
//	         Patterns: "shutting down"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Input
	{
		pattern: "no input provided",
		msg: UserMessage{
			Message: "No readings were provided",
			Action:  "Send a JSON object, a JSON array or a text file with one object per line",
			Code:    "INP001",
		},
	},
	{
		pattern: "not valid json",
		msg: UserMessage{
			Message: "The request body is not valid JSON",
			Action:  "Check the body with a JSON validator",
			Code:    "INP002",
		},
	},
	{
		pattern: "unknown mode",
		msg: UserMessage{
			Message: "The ingestion mode is not recognised",
			Action:  "Use mode=best_effort or mode=transactional",
			Code:    "INP003",
		},
	},
	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "A query parameter is invalid",
			Action:  "Check the parameter format in the API index",
			Code:    "INP004",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The upload exceeds the size limit",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The upload exceeds the size limit",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only plain text files are accepted",
			Action:  "Upload a .txt file with one JSON object per line",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was attached",
			Action:  `Attach the file in the "file" form field`,
			Code:    "FILE003",
		},
	},

	// Database
	{
		pattern: "storage unavailable",
		msg: UserMessage{
			Message: "No database connection could be obtained",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A reading with this key already exists",
			Action:  "Remove the duplicate readings and resubmit",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A reading with this key already exists",
			Action:  "Remove the duplicate readings and resubmit",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "A value was rejected by the database",
			Action:  "Review the failed readings for out-of-range values",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Send a smaller batch or try again later",
			Code:    "DB005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Send a smaller batch or try again later",
			Code:    "DB005",
		},
	},
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "The requested reading does not exist",
			Action:  "Check the reading id",
			Code:    "DB006",
		},
	},

	// Batches
	{
		pattern: "too many concurrent batches",
		msg: UserMessage{
			Message: "Too many batches are being processed",
			Action:  "Please wait a moment and try again",
			Code:    "BAT001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "BAT002",
		},
	},
	{
		pattern: "shutting down",
		msg: UserMessage{
			Message: "The server is not accepting new batches",
			Action:  "Please try again in a few moments",
			Code:    "BAT003",
		},
	},
}

// defaultMessage is returned when no pattern matches. Support staff should
// check the logs for the technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. It
// returns the first matching pattern, or the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
