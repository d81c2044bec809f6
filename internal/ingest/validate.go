package ingest

// validate.go checks decoded records against the reading rules.
//
// Rules are data: each FieldSpec names a field, its expected type and the
// message reported when the field breaks the rule. Specs are checked in
// order and every violation is collected, so a caller sees all problems of
// a record at once. Optional fields that are absent or null always pass.
// timestamp has no rule: any JSON value is accepted and stored as text.

import (
	"math"
	"strconv"

	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

// FieldType is the type a field must hold when present.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
)

// FieldSpec defines the rule for one record field.
type FieldSpec struct {
	Name     string    // JSON field name
	Type     FieldType // Expected type when present and not null
	Required bool      // Must be present; text must not be empty
	Bounded  bool      // Numeric value must lie within [Min, Max]
	Min, Max float64
	Message  string // Violation message
}

// ReadingFields are the rules for an RFID reading, in reporting order.
var ReadingFields = []FieldSpec{
	{Name: "tagId", Type: FieldText, Required: true, Message: "tagId is required"},
	{Name: "deviceId", Type: FieldText, Required: true, Message: "deviceId is required"},
	{Name: "latitude", Type: FieldNumeric, Bounded: true, Min: -90, Max: 90,
		Message: "latitude must be a number between -90 and 90"},
	{Name: "longitude", Type: FieldNumeric, Bounded: true, Min: -180, Max: 180,
		Message: "longitude must be a number between -180 and 180"},
	{Name: "altitude", Type: FieldNumeric, Message: "altitude must be a number"},
}

// Validator validates records against a fixed list of field specs.
// It is stateless and safe for concurrent use.
type Validator struct {
	specs []FieldSpec
}

// NewValidator creates a validator for the reading rules.
func NewValidator() *Validator {
	return &Validator{specs: ReadingFields}
}

// Validate checks rec and returns either a valid outcome carrying the
// normalized Reading, or an invalid one listing every violation.
func (v *Validator) Validate(index int, rec Record) ValidationOutcome {
	var violations []string
	for _, spec := range v.specs {
		if !checkField(rec[spec.Name], spec) {
			violations = append(violations, spec.Message)
		}
	}

	if len(violations) > 0 {
		return ValidationOutcome{Index: index, Record: rec, Violations: violations}
	}
	return ValidationOutcome{Index: index, Reading: toReading(rec), Record: rec}
}

// checkField reports whether val satisfies spec. A missing key arrives as
// the null Value.
func checkField(val Value, spec FieldSpec) bool {
	if val.IsNull() {
		return !spec.Required
	}

	switch spec.Type {
	case FieldText:
		s, ok := val.AsString()
		if !ok {
			return false
		}
		return !spec.Required || s != ""
	case FieldNumeric:
		f, ok := val.AsNumber()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
		return !spec.Bounded || (f >= spec.Min && f <= spec.Max)
	}
	return false
}

// toReading projects a record that passed validation into a Reading.
func toReading(rec Record) model.Reading {
	var r model.Reading
	r.TagID, _ = rec["tagId"].AsString()
	r.DeviceID, _ = rec["deviceId"].AsString()
	r.Timestamp = timestampText(rec["timestamp"])
	r.Latitude = optNumber(rec["latitude"])
	r.Longitude = optNumber(rec["longitude"])
	r.Altitude = optNumber(rec["altitude"])
	return r
}

// timestampText returns a string timestamp as is and any other non-null
// value as its JSON text. Numbers are written without an exponent so epoch
// seconds keep their digits.
func timestampText(v Value) *string {
	var s string
	switch v.Kind() {
	case KindNull:
		return nil
	case KindString:
		s, _ = v.AsString()
	case KindNumber:
		f, _ := v.AsNumber()
		s = strconv.FormatFloat(f, 'f', -1, 64)
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}

func optNumber(v Value) *float64 {
	f, ok := v.AsNumber()
	if !ok {
		return nil
	}
	return &f
}
