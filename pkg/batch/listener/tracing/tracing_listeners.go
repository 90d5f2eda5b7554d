// Package tracing annotates the ambient spans with run and chunk events. The
// spans themselves are opened and closed by the run driver; the listeners
// only record what happened inside them.
package tracing

import (
	"context"
	"fmt"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/core/metrics"
)

// --- Run Execution Listener ---

type TracingRunListener struct {
	tracer metrics.Tracer
}

func NewTracingRunListener(tracer metrics.Tracer) port.RunExecutionListener {
	return &TracingRunListener{tracer: tracer}
}

func (l *TracingRunListener) BeforeRun(ctx context.Context, run *model.Run) {
	l.tracer.RecordEvent(ctx, "run_started", map[string]interface{}{
		"run.id":   run.ID,
		"run.name": run.Name,
	})
}

func (l *TracingRunListener) AfterRun(ctx context.Context, run *model.Run) {
	l.tracer.RecordEvent(ctx, "run_finished", map[string]interface{}{
		"run.name":         run.Name,
		"chunks_processed": run.ChunksProcessed,
		"failure_count":    run.FailureCount(),
	})
}

var _ port.RunExecutionListener = (*TracingRunListener)(nil)

// --- Chunk Listener ---

type TracingChunkListener struct {
	tracer metrics.Tracer
}

func NewTracingChunkListener(tracer metrics.Tracer) port.ChunkListener {
	return &TracingChunkListener{tracer: tracer}
}

func (l *TracingChunkListener) BeforeChunk(ctx context.Context, run *model.Run, chunk model.Chunk) {
	// The chunk span itself marks the submission.
}

func (l *TracingChunkListener) AfterChunk(ctx context.Context, run *model.Run, chunk model.Chunk, outcome model.RemoteOutcome) {
	if outcome.IsFailure() {
		l.tracer.RecordError(ctx, "remote", fmt.Errorf("%s: %s", outcome.FailureKind, outcome.FailureDetail))
		l.tracer.RecordEvent(ctx, "chunk_failed", map[string]interface{}{
			"sequence": chunk.Sequence,
			"kind":     outcome.FailureKind.String(),
		})
		return
	}
	l.tracer.RecordEvent(ctx, "chunk_completed", map[string]interface{}{
		"sequence": chunk.Sequence,
		"records":  chunk.Size(),
	})
}

var _ port.ChunkListener = (*TracingChunkListener)(nil)
