package metrics

import (
	"context"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing.
// This interface provides functionality to integrate with tracing systems
// like OpenTelemetry, enabling visualization of run and chunk execution
// flows.
type Tracer interface {
	// StartRunSpan starts a Span covering one entire Run.
	//
	// ctx: The parent context.
	// run: The Run to be traced.
	//
	// Returns: A context with the new Span set, and a function to end the
	//          Span. It is recommended to call the returned function in a
	//          defer statement.
	StartRunSpan(ctx context.Context, run *model.Run) (context.Context, func())

	// StartChunkSpan starts a Span for one chunk submission.
	//
	// ctx: The parent context (typically a context with a run Span).
	// run: The Run the chunk belongs to.
	// chunk: The chunk being submitted.
	//
	// Returns: A context with the new Span set, and a function to end the
	//          Span.
	StartChunkSpan(ctx context.Context, run *model.Run, chunk model.Chunk) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// ctx: The context with the current Span.
	// module: The name of the module or component where the error occurred
	//         (e.g., "engine", "remote").
	// err: The error to record.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	//
	// ctx: The context with the current Span.
	// name: The name of the event (e.g., "chunk_failed", "report_delivered").
	// attributes: Additional attributes to associate with the event.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
