package ingest

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/JonMunkholm/rfid-ingest/internal/ingest"

var tracer = otel.Tracer(instrumentationName)

// pipelineMetrics holds the batch instruments. Instruments are created from
// the global meter provider, so they are no-ops until telemetry is enabled.
type pipelineMetrics struct {
	batches  metric.Int64Counter
	records  metric.Int64Counter
	duration metric.Float64Histogram
}

func newPipelineMetrics() pipelineMetrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	batches, _ := meter.Int64Counter("rfid.ingest.batches",
		metric.WithDescription("Ingestion batches processed"),
	)
	records, _ := meter.Int64Counter("rfid.ingest.records",
		metric.WithDescription("Records per pipeline stage and result"),
	)
	duration, _ := meter.Float64Histogram("rfid.ingest.batch.duration",
		metric.WithDescription("Time to process one batch (ms)"),
		metric.WithUnit("ms"),
	)
	return pipelineMetrics{batches: batches, records: records, duration: duration}
}

func (m pipelineMetrics) record(ctx context.Context, rep *BatchReport, elapsed time.Duration) {
	if m.batches == nil || m.records == nil || m.duration == nil {
		return
	}
	batchAttrs := metric.WithAttributes(
		attribute.String("mode", string(rep.Mode)),
		attribute.String("status", string(rep.Status)),
	)
	m.batches.Add(ctx, 1, batchAttrs)
	m.duration.Record(ctx, float64(elapsed.Milliseconds()), batchAttrs)

	counts := []struct {
		stage, result string
		n             int
	}{
		{"decode", "ok", rep.Decoded},
		{"decode", "failed", rep.DecodeFailed},
		{"validate", "ok", rep.Valid},
		{"validate", "failed", rep.Invalid},
		{"insert", "ok", rep.Inserted},
		{"insert", "failed", rep.InsertFailed},
	}
	for _, c := range counts {
		if c.n == 0 {
			continue
		}
		m.records.Add(ctx, int64(c.n), metric.WithAttributes(
			attribute.String("stage", c.stage),
			attribute.String("result", c.result),
		))
	}
}
