package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	telemetry "github.com/tigerroll/setwave/pkg/batch/infrastructure/telemetry"
)

func newTestRun(t *testing.T) *model.Run {
	t.Helper()
	run, err := model.NewRun("nightly-purge", "SELECT id FROM events", "delete(ids);", false)
	require.NoError(t, err)
	return run
}

// spanAttribute returns the value of the named attribute on the span.
func spanAttribute(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOpenTelemetryTracer_RunSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := telemetry.NewOpenTelemetryTracer(provider)

	run := newTestRun(t)
	require.NoError(t, run.MarkAsStarted())

	ctx, endRun := tracer.StartRunSpan(context.Background(), run)
	_, endChunk := tracer.StartChunkSpan(ctx, run, model.NewChunk(0, []string{"a", "b"}))
	run.RecordFailure(`["a","b"]`, "remote execution failed")
	run.MarkChunkProcessed()
	endChunk()
	endRun()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	chunkSpan := spans[0]
	assert.Equal(t, "chunk 0", chunkSpan.Name())
	size, ok := spanAttribute(chunkSpan, "batch.chunk.size")
	require.True(t, ok)
	assert.Equal(t, int64(2), size.AsInt64())

	runSpan := spans[1]
	assert.Equal(t, "run nightly-purge", runSpan.Name())
	failures, ok := spanAttribute(runSpan, "batch.run.failure_count")
	require.True(t, ok)
	assert.Equal(t, int64(1), failures.AsInt64())
	assert.Equal(t, runSpan.SpanContext().TraceID(), chunkSpan.SpanContext().TraceID(),
		"chunk spans nest under the run span")
}

func TestOpenTelemetryTracer_RecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := telemetry.NewOpenTelemetryTracer(provider)

	ctx, end := tracer.StartRunSpan(context.Background(), newTestRun(t))
	tracer.RecordError(ctx, "engine", errors.New("record source failed"))
	tracer.RecordEvent(ctx, "chunk_failed", map[string]interface{}{"sequence": 3, "retryable": false})
	end()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "record source failed", span.Status().Description)

	events := span.Events()
	require.Len(t, events, 2, "one error event plus one custom event")
	assert.Equal(t, "exception", events[0].Name)
	assert.Equal(t, "chunk_failed", events[1].Name)
}

func TestOtelMetricRecorder_ChunkOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder, err := telemetry.NewOtelMetricRecorder(provider)
	require.NoError(t, err)

	ctx := context.Background()
	recorder.RecordChunkOutcome(ctx, "nightly-purge", 200, model.NewSuccessOutcome())
	recorder.RecordChunkOutcome(ctx, "nightly-purge", 200, model.NewSuccessOutcome())
	recorder.RecordChunkOutcome(ctx, "nightly-purge", 37,
		model.NewFailureOutcome(model.FailureKindTransport, "transport: connection refused"))
	recorder.RecordNotification(ctx, "nightly-purge", true)
	recorder.RecordDuration(ctx, "remote_execute", 250*time.Millisecond, map[string]string{"run": "nightly-purge"})

	var collected metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &collected))
	require.Len(t, collected.ScopeMetrics, 1)

	sums := map[string]map[string]int64{}
	for _, m := range collected.ScopeMetrics[0].Metrics {
		sum, ok := m.Data.(metricdata.Sum[int64])
		if !ok {
			continue
		}
		byOutcome := map[string]int64{}
		for _, dp := range sum.DataPoints {
			if outcome, ok := dp.Attributes.Value(attribute.Key("outcome")); ok {
				byOutcome[outcome.AsString()] = dp.Value
			} else {
				byOutcome[""] = dp.Value
			}
		}
		sums[m.Name] = byOutcome
	}

	assert.Equal(t, int64(2), sums["batch.chunk.outcomes"]["success"])
	assert.Equal(t, int64(1), sums["batch.chunk.outcomes"]["TRANSPORT_FAILURE"])
	assert.Equal(t, int64(400), sums["batch.chunk.records"]["success"])
	assert.Equal(t, int64(37), sums["batch.chunk.records"]["TRANSPORT_FAILURE"])
	assert.Equal(t, int64(1), sums["batch.notifications"][""])
}

func TestOtelMetricRecorder_RunLifecycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder, err := telemetry.NewOtelMetricRecorder(provider)
	require.NoError(t, err)

	run := newTestRun(t)
	require.NoError(t, run.MarkAsStarted())
	recorder.RecordRunStart(context.Background(), run)
	run.RecordFailure(`["a"]`, "remote execution failed")
	require.NoError(t, run.MarkAsFinished())
	recorder.RecordRunEnd(context.Background(), run)

	var collected metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &collected))
	require.Len(t, collected.ScopeMetrics, 1)

	var sawDuration, sawFailures bool
	for _, m := range collected.ScopeMetrics[0].Metrics {
		switch m.Name {
		case "batch.run.duration":
			histogram, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, histogram.DataPoints, 1)
			assert.Equal(t, uint64(1), histogram.DataPoints[0].Count)
			sawDuration = true
		case "batch.run.failures":
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(1), sum.DataPoints[0].Value)
			sawFailures = true
		}
	}
	assert.True(t, sawDuration)
	assert.True(t, sawFailures)
}
