// Package port defines the core interfaces (ports) for the batch application.
// These interfaces abstract the application's capabilities and dependencies,
// allowing for flexible implementation and testing.
package port

import (
	"context"
	"errors"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// ErrNoMoreIDs is returned by RecordSource.Next once the identifier sequence
// is exhausted.
var ErrNoMoreIDs = errors.New("no more record identifiers to read")

// RunOperator is the host-facing contract for driving one run. The host
// calls OnStart exactly once, OnChunk once per materialized chunk, and
// OnFinish exactly once, never concurrently. Calling out of order is a
// LifecycleViolation.
type RunOperator interface {
	// OnStart transitions the run to RUNNING and returns the record-source
	// descriptor the host materializes into chunks. The descriptor is an
	// opaque pass-through; the core never parses it.
	//
	// Returns:
	//   string: The record-source descriptor (e.g., a query string).
	//   error: A LifecycleViolation if the run already started.
	OnStart(ctx context.Context) (string, error)

	// OnChunk composes and executes the script for one chunk and records any
	// failure into the run's error log. Remote failures are data, not control
	// flow: the returned error is non-nil only for API misuse
	// (LifecycleViolation) or an invalid chunk (InvalidChunk).
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   chunk: The identifier chunk to process.
	//
	// Returns:
	//   model.RemoteOutcome: The classified outcome of the remote execution.
	//   error: InvalidChunk or LifecycleViolation on caller error.
	OnChunk(ctx context.Context, chunk model.Chunk) (model.RemoteOutcome, error)

	// OnFinish transitions the run to FINISHED, builds the completion report
	// from the accumulated state, and delivers it when the run asks for
	// notification. A second call is a LifecycleViolation; the run finalizes
	// exactly once.
	OnFinish(ctx context.Context) (model.CompletionReport, error)
}

// ScriptExecutor turns a composed script into a structured outcome by
// speaking the remote execution protocol. Implementations make exactly one
// outbound call per invocation and never retry; retry policy, if any,
// belongs to the host scheduler.
type ScriptExecutor interface {
	// Execute submits the script and classifies the result. Every failure
	// shape (transport, server status, protocol violation, remote runtime,
	// remote compile) is folded into the outcome; Execute itself never
	// returns an error.
	Execute(ctx context.Context, script string) model.RemoteOutcome
}

// RecordSource yields the ordered candidate identifier sequence for a run.
// Identifiers are opaque to the core; order is preserved as delivered.
type RecordSource interface {
	// Open prepares the source for the given record-source descriptor.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   query: The record-source descriptor returned by OnStart.
	//
	// Returns:
	//   error: An error if the source cannot be opened.
	Open(ctx context.Context, query string) error

	// Next returns the next identifier, or ErrNoMoreIDs once the sequence is
	// exhausted.
	Next(ctx context.Context) (string, error)

	// Close releases the source's resources.
	Close(ctx context.Context) error
}

// SessionProvider supplies the opaque session token carried in the request
// envelope header. The core never generates or refreshes credentials itself.
type SessionProvider interface {
	// SessionID returns a token valid for the next outbound call.
	SessionID(ctx context.Context) (string, error)
}

// ExpressionResolver resolves dynamic property expressions (e.g., #{run.name})
// against the current run. Strings without expressions pass through unchanged.
type ExpressionResolver interface {
	// Resolve resolves the given expression string and returns the resulting string.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   expression: The property value, possibly containing #{...} expressions.
	//   run: The run the expression is evaluated against (may be nil).
	//
	// Returns:
	//   The resolved string and an error if resolution fails.
	Resolve(ctx context.Context, expression string, run *model.Run) (string, error)
}

// FailureWriter exports the accumulated error log of a finished run to an
// external sink. Export is best-effort and never alters the run outcome.
type FailureWriter interface {
	// WriteFailures writes one row per error log entry.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   run: The finished run whose error log is exported.
	//
	// Returns:
	//   error: An error if the export sink rejects the write.
	WriteFailures(ctx context.Context, run *model.Run) error
}

// ReportArchiver stores a completion report outside the process, e.g. on a
// local filesystem or an object store.
type ReportArchiver interface {
	// Archive persists the report.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   run: The finished run the report belongs to.
	//   report: The completion report to store.
	//
	// Returns:
	//   error: An error if the report cannot be stored.
	Archive(ctx context.Context, run *model.Run, report model.CompletionReport) error
}

// RunExecutionListener is an interface for handling run execution events.
type RunExecutionListener interface {
	// BeforeRun is called just before the first chunk of a run is processed.
	BeforeRun(ctx context.Context, run *model.Run)
	// AfterRun is called after the run finalizes (regardless of how many
	// chunks failed).
	AfterRun(ctx context.Context, run *model.Run)
}

// ChunkListener is an interface for handling chunk processing events.
type ChunkListener interface {
	// BeforeChunk is called just before a chunk is composed and submitted.
	BeforeChunk(ctx context.Context, run *model.Run, chunk model.Chunk)
	// AfterChunk is called after the chunk's outcome is known.
	AfterChunk(ctx context.Context, run *model.Run, chunk model.Chunk, outcome model.RemoteOutcome)
}
