package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordRunStart does nothing.
func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, run *model.Run) {}

// RecordRunEnd does nothing.
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, run *model.Run) {}

// RecordChunkOutcome does nothing.
func (r *NoOpMetricRecorder) RecordChunkOutcome(ctx context.Context, runName string, recordCount int, outcome model.RemoteOutcome) {
}

// RecordNotification does nothing.
func (r *NoOpMetricRecorder) RecordNotification(ctx context.Context, runName string, delivered bool) {}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartRunSpan returns the context unchanged.
func (t *NoOpTracer) StartRunSpan(ctx context.Context, run *model.Run) (context.Context, func()) {
	return ctx, func() {}
}

// StartChunkSpan returns the context unchanged.
func (t *NoOpTracer) StartChunkSpan(ctx context.Context, run *model.Run, chunk model.Chunk) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
