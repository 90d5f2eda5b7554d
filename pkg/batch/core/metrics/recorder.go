package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics related to
// run and chunk execution.
//
// The interface provides a standardized way to record run lifecycle, chunk
// outcome, and notification events, which facilitates integration with
// different metrics backends (e.g., Prometheus, OpenTelemetry Metrics).
type MetricRecorder interface {
	// RecordRunStart records the start of a Run.
	//
	// ctx: The context for the operation.
	// run: The Run that started.
	RecordRunStart(ctx context.Context, run *model.Run)

	// RecordRunEnd records the end of a Run, including its final failure
	// count.
	//
	// ctx: The context for the operation.
	// run: The Run that finished.
	RecordRunEnd(ctx context.Context, run *model.Run)

	// RecordChunkOutcome records the classified outcome of one chunk
	// submission.
	//
	// ctx: The context for the operation.
	// runName: The name of the run the chunk belongs to.
	// recordCount: The number of record identifiers in the chunk.
	// outcome: The classified remote outcome.
	RecordChunkOutcome(ctx context.Context, runName string, recordCount int, outcome model.RemoteOutcome)

	// RecordNotification records one completion report delivery attempt.
	//
	// ctx: The context for the operation.
	// runName: The name of the run the report describes.
	// delivered: Whether delivery succeeded.
	RecordNotification(ctx context.Context, runName string, delivered bool)

	// RecordDuration records the execution time of a specific operation.
	//
	// ctx: The context for the operation.
	// name: The name of the duration to record (e.g., "remote_execute_duration").
	// duration: The length of the duration to record.
	// tags: A map of additional tags or attributes to associate with the
	//       duration. Example: `{"run": "nightly-purge", "result": "success"}`
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
