package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer over a real
// OpenTelemetry tracer.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer scoped to this library.
func NewOpenTelemetryTracer(provider *sdktrace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartRunSpan starts a span covering one entire Run. The returned end
// function stamps the run's final failure count before closing the span.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, run *model.Run) (context.Context, func()) {
	spanCtx, span := t.tracer.Start(ctx, fmt.Sprintf("run %s", run.Name),
		trace.WithAttributes(
			attribute.String("batch.run.id", run.ID),
			attribute.String("batch.run.name", run.Name),
		))
	return spanCtx, func() {
		span.SetAttributes(
			attribute.Int("batch.run.chunks_processed", run.ChunksProcessed),
			attribute.Int("batch.run.failure_count", run.FailureCount()),
		)
		span.End()
	}
}

// StartChunkSpan starts a span for one chunk submission.
func (t *OpenTelemetryTracer) StartChunkSpan(ctx context.Context, run *model.Run, chunk model.Chunk) (context.Context, func()) {
	spanCtx, span := t.tracer.Start(ctx, fmt.Sprintf("chunk %d", chunk.Sequence),
		trace.WithAttributes(
			attribute.String("batch.run.name", run.Name),
			attribute.Int("batch.chunk.sequence", chunk.Sequence),
			attribute.Int("batch.chunk.size", chunk.Size()),
		))
	return spanCtx, func() { span.End() }
}

// RecordError records an error on the span carried by the context.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records a named event on the span carried by the context.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

// toAttributes converts loosely typed event attributes into OTel attributes.
func toAttributes(attributes map[string]interface{}) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attributes))
	for key, value := range attributes {
		switch v := value.(type) {
		case string:
			out = append(out, attribute.String(key, v))
		case bool:
			out = append(out, attribute.Bool(key, v))
		case int:
			out = append(out, attribute.Int(key, v))
		case int64:
			out = append(out, attribute.Int64(key, v))
		case float64:
			out = append(out, attribute.Float64(key, v))
		default:
			out = append(out, attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
	return out
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
