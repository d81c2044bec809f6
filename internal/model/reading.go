// Package model holds the domain types shared by the ingestion pipeline,
// the storage layer and the HTTP layer.
package model

import "time"

// Reading is one validated RFID tag observation.
// Optional fields are nil when the device did not report them.
type Reading struct {
	TagID     string   `json:"tagId"`
	DeviceID  string   `json:"deviceId"`
	Timestamp *string  `json:"timestamp"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  *float64 `json:"altitude"`
}

// InsertedRow is a Reading as persisted by storage, with the identifier and
// creation time assigned on insert. Rows are never updated after insert.
type InsertedRow struct {
	ID int64 `json:"id"`
	Reading
	CreatedAt time.Time `json:"createdAt"`
}
