// Package ingest turns a batch of submitted RFID readings into stored rows
// and a report describing what happened to every line.
//
// A batch flows through four stages, strictly in sequence:
//
//  1. Decode: split raw text into trimmed, non-empty lines and parse each
//     one as a JSON object (Decode, DecodeJSON).
//  2. Validate: check every decoded record against the reading rules and
//     collect all violations (Validator).
//  3. Insert: write the valid subset in BestEffort or Transactional mode
//     (Inserter).
//  4. Aggregate: count every stage and derive the batch status (Aggregate).
//
// Pipeline wires the stages together. Per-line and per-record problems are
// data in the BatchReport; only ErrInputMissing, ErrMalformedBody and
// ErrStorageUnavailable stop a batch from producing a report.
//
// The package holds no mutable state shared between batches. Concurrent
// batches may share one Pipeline and one Store.
package ingest
