package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindRaw // nested array or object, kept as JSON text
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Value is one field of a decoded record. The zero Value is null.
type Value struct {
	kind Kind
	str  string // string payload or raw JSON text
	num  float64
	b    bool
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps f.
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// RawValue wraps a nested JSON array or object.
func RawValue(text string) Value { return Value{kind: KindRaw, str: text} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the numeric payload and whether v is a number.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the boolean payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// MarshalJSON echoes the value as it was received. Non-finite numbers have
// no JSON form and are written as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return json.Marshal(strconv.FormatFloat(v.num, 'g', -1, 64))
		}
		return strconv.AppendFloat(nil, v.num, 'g', -1, 64), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindRaw:
		return []byte(v.str), nil
	default:
		return []byte("null"), nil
	}
}

// Record is a decoded candidate reading: field name to value.
type Record map[string]Value

// Mode selects how the valid records of a batch are written.
type Mode string

const (
	// BestEffort writes every record independently. A failed write affects
	// only that record.
	BestEffort Mode = "best_effort"

	// Transactional writes the whole batch in one transaction. Any failed
	// write rolls back every record.
	Transactional Mode = "transactional"
)

// ParseMode parses a mode name. Hyphens and case are ignored.
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "best_effort", "besteffort":
		return BestEffort, nil
	case "transactional":
		return Transactional, nil
	default:
		return "", fmt.Errorf("ingest: unknown mode %q (use best_effort or transactional)", s)
	}
}

// Status is the overall outcome of a batch.
type Status string

const (
	// StatusSuccess: at least one record inserted and no failure at any stage.
	StatusSuccess Status = "success"
	// StatusPartialSuccess: at least one record inserted and at least one failure.
	StatusPartialSuccess Status = "partial_success"
	// StatusFailure: nothing inserted.
	StatusFailure Status = "failure"
)

// DecodeOutcome is the result of decoding one kept line. Exactly one of
// Record and Error is set.
type DecodeOutcome struct {
	Index  int    `json:"index"`
	Record Record `json:"-"`
	Line   string `json:"line"`
	Error  string `json:"error"`
}

// Failed reports whether the line could not be decoded into a record.
func (o DecodeOutcome) Failed() bool { return o.Record == nil }

// ValidationOutcome is the result of validating one decoded record.
// Reading is set only when Violations is empty.
type ValidationOutcome struct {
	Index      int           `json:"index"`
	Reading    model.Reading `json:"-"`
	Record     Record        `json:"record"`
	Violations []string      `json:"errors"`
}

// Valid reports whether the record passed every rule.
func (o ValidationOutcome) Valid() bool { return len(o.Violations) == 0 }

// InsertionResult tags an InsertionOutcome.
type InsertionResult string

const (
	Inserted        InsertionResult = "inserted"
	InsertFailed    InsertionResult = "insert_failed"
	BatchRolledBack InsertionResult = "rolled_back"
)

// InsertionOutcome is the result of writing one valid record, or in
// Transactional mode the single outcome of a rolled back batch. A rolled
// back outcome has Index -1 and carries the storage error in Error.
type InsertionOutcome struct {
	Result  InsertionResult    `json:"result"`
	Index   int                `json:"index"`
	Row     *model.InsertedRow `json:"row,omitempty"`
	Reading *model.Reading     `json:"reading,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// BatchReport is the aggregated outcome of one ingestion call.
type BatchReport struct {
	BatchID    string `json:"batchId"`
	Mode       Mode   `json:"mode"`
	Status     Status `json:"status"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"durationMs"`

	LinesTotal   int `json:"linesTotal"`
	Decoded      int `json:"decoded"`
	DecodeFailed int `json:"decodeFailed"`
	Valid        int `json:"valid"`
	Invalid      int `json:"invalid"`
	Inserted     int `json:"inserted"`
	InsertFailed int `json:"insertFailed"`

	RolledBack     bool   `json:"rolledBack"`
	RollbackReason string `json:"rollbackReason,omitempty"`

	DecodeFailures     []DecodeOutcome     `json:"decodeFailures"`
	ValidationFailures []ValidationOutcome `json:"validationFailures"`
	Insertions         []InsertionOutcome  `json:"insertions"`
}
