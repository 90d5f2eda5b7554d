package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
)

// OtelMetricRecorder is a metrics.MetricRecorder that feeds OTLP-exported
// instruments instead of a scrape endpoint.
type OtelMetricRecorder struct {
	runState      metric.Int64Counter
	runFailures   metric.Int64Counter
	runDuration   metric.Float64Histogram
	chunkOutcomes metric.Int64Counter
	chunkRecords  metric.Int64Counter
	notifications metric.Int64Counter
	operations    metric.Float64Histogram
}

// NewOtelMetricRecorder creates the recorder's instruments on the provider's
// meter.
func NewOtelMetricRecorder(provider *sdkmetric.MeterProvider) (*OtelMetricRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OtelMetricRecorder{}

	var err error
	if r.runState, err = meter.Int64Counter("batch.run.state",
		metric.WithDescription("Run state transitions observed.")); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the run state counter", err, false, false)
	}
	if r.runFailures, err = meter.Int64Counter("batch.run.failures",
		metric.WithDescription("Failure log entries accumulated by finished runs.")); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the run failure counter", err, false, false)
	}
	if r.runDuration, err = meter.Float64Histogram("batch.run.duration",
		metric.WithDescription("Duration of finished runs."), metric.WithUnit("s")); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the run duration histogram", err, false, false)
	}
	if r.chunkOutcomes, err = meter.Int64Counter("batch.chunk.outcomes",
		metric.WithDescription("Chunk submissions by classified outcome.")); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the chunk outcome counter", err, false, false)
	}
	if r.chunkRecords, err = meter.Int64Counter("batch.chunk.records",
		metric.WithDescription("Record identifiers submitted, by chunk outcome.")); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the chunk record counter", err, false, false)
	}
	if r.notifications, err = meter.Int64Counter("batch.notifications",
		metric.WithDescription("Completion report delivery attempts.")); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the notification counter", err, false, false)
	}
	if r.operations, err = meter.Float64Histogram("batch.operation.duration",
		metric.WithDescription("Duration of named internal operations."), metric.WithUnit("s")); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create the operation duration histogram", err, false, false)
	}

	return r, nil
}

// RecordRunStart records the start of a Run.
func (r *OtelMetricRecorder) RecordRunStart(ctx context.Context, run *model.Run) {
	r.runState.Add(ctx, 1, metric.WithAttributes(
		attribute.String("run_name", run.Name),
		attribute.String("state", run.State.String()),
	))
}

// RecordRunEnd records the end of a Run, its duration and its final failure
// count.
func (r *OtelMetricRecorder) RecordRunEnd(ctx context.Context, run *model.Run) {
	nameAttr := attribute.String("run_name", run.Name)
	r.runState.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("state", run.State.String())))
	r.runFailures.Add(ctx, int64(run.FailureCount()), metric.WithAttributes(nameAttr))

	if run.StartTime == nil || run.EndTime == nil {
		return
	}
	r.runDuration.Record(ctx, run.EndTime.Sub(*run.StartTime).Seconds(), metric.WithAttributes(nameAttr))
}

// RecordChunkOutcome records the classified outcome of one chunk submission.
func (r *OtelMetricRecorder) RecordChunkOutcome(ctx context.Context, runName string, recordCount int, outcome model.RemoteOutcome) {
	outcomeLabel := "success"
	if outcome.IsFailure() {
		outcomeLabel = outcome.FailureKind.String()
	}
	attrs := metric.WithAttributes(
		attribute.String("run_name", runName),
		attribute.String("outcome", outcomeLabel),
	)
	r.chunkOutcomes.Add(ctx, 1, attrs)
	r.chunkRecords.Add(ctx, int64(recordCount), attrs)
}

// RecordNotification records one completion report delivery attempt.
func (r *OtelMetricRecorder) RecordNotification(ctx context.Context, runName string, delivered bool) {
	r.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("run_name", runName),
		attribute.Bool("delivered", delivered),
	))
}

// RecordDuration records the execution time of a named operation with its
// tags as attributes.
func (r *OtelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("operation", name))
	for key, value := range tags {
		attrs = append(attrs, attribute.String(key, value))
	}
	r.operations.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OtelMetricRecorder)(nil)
