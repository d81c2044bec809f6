package ingest

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/rfid-ingest/internal/logging"
)

// Config holds pipeline settings.
type Config struct {
	// ChunkSize is the number of readings per multi-row INSERT.
	ChunkSize int
}

// Pipeline runs batches through decode, validate, insert and aggregate.
// It is safe for concurrent use. A mode other than Transactional runs as
// BestEffort.
type Pipeline struct {
	validator *Validator
	inserter  *Inserter
	metrics   pipelineMetrics
}

// NewPipeline creates a pipeline writing to store.
func NewPipeline(store Store, cfg Config) *Pipeline {
	return &Pipeline{
		validator: NewValidator(),
		inserter:  NewInserter(store, cfg.ChunkSize),
		metrics:   newPipelineMetrics(),
	}
}

// IngestText ingests a newline-delimited blob of JSON objects read from r.
func (p *Pipeline) IngestText(ctx context.Context, r io.Reader, mode Mode) (*BatchReport, error) {
	raw, err := ReadInput(r)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "text", mode, Decode(raw))
}

// IngestJSON ingests a structured body holding one object or an array.
func (p *Pipeline) IngestJSON(ctx context.Context, body []byte, mode Mode) (*BatchReport, error) {
	decodes, err := DecodeJSON(body)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "json", mode, decodes)
}

// IngestRecords ingests records that were decoded by the caller. A nil
// slice is ErrInputMissing; an empty one yields an empty failed report.
func (p *Pipeline) IngestRecords(ctx context.Context, records []Record, mode Mode) (*BatchReport, error) {
	if records == nil {
		return nil, ErrInputMissing
	}
	decodes := make([]DecodeOutcome, len(records))
	for i, rec := range records {
		if rec == nil {
			rec = Record{}
		}
		decodes[i] = DecodeOutcome{Index: i, Record: rec}
	}
	return p.run(ctx, "records", mode, decodes)
}

func (p *Pipeline) run(ctx context.Context, source string, mode Mode, decodes []DecodeOutcome) (*BatchReport, error) {
	if mode != Transactional {
		mode = BestEffort
	}
	start := time.Now()
	batchID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "ingest.batch", trace.WithAttributes(
		attribute.String("rfid.batch_id", batchID),
		attribute.String("rfid.mode", string(mode)),
		attribute.String("rfid.source", source),
	))
	defer span.End()

	log := logging.ForBatch(ctx, batchID, string(mode))
	log.Debug("batch decoded", "source", source, "lines", len(decodes))

	validations := make([]ValidationOutcome, 0, len(decodes))
	valid := make([]ValidationOutcome, 0, len(decodes))
	for _, d := range decodes {
		if d.Failed() {
			continue
		}
		v := p.validator.Validate(d.Index, d.Record)
		validations = append(validations, v)
		if v.Valid() {
			valid = append(valid, v)
		}
	}
	log.Debug("batch validated", "valid", len(valid), "invalid", len(validations)-len(valid))

	insertions, err := p.inserter.Insert(ctx, valid, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage unavailable")
		log.Error("batch aborted", "error", err, "valid", len(valid))
		return nil, err
	}

	rep := Aggregate(decodes, validations, insertions, mode)
	elapsed := time.Since(start)
	rep.BatchID = batchID
	rep.DurationMS = elapsed.Milliseconds()

	span.SetAttributes(
		attribute.String("rfid.status", string(rep.Status)),
		attribute.Int("rfid.lines", rep.LinesTotal),
		attribute.Int("rfid.inserted", rep.Inserted),
	)
	if rep.RolledBack {
		span.SetStatus(codes.Error, "batch rolled back")
	}
	p.metrics.record(ctx, &rep, elapsed)

	log.Info("batch ingested",
		"status", rep.Status,
		"lines", rep.LinesTotal,
		"decode_failed", rep.DecodeFailed,
		"invalid", rep.Invalid,
		"inserted", rep.Inserted,
		"insert_failed", rep.InsertFailed,
		"rolled_back", rep.RolledBack,
		"duration_ms", rep.DurationMS,
	)
	return &rep, nil
}
