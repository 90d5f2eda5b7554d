package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/core/metrics"
)

// --- Run Execution Listener ---

type MetricsRunListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsRunListener(recorder metrics.MetricRecorder) port.RunExecutionListener {
	return &MetricsRunListener{recorder: recorder}
}

func (l *MetricsRunListener) BeforeRun(ctx context.Context, run *model.Run) {
	l.recorder.RecordRunStart(ctx, run)
}

func (l *MetricsRunListener) AfterRun(ctx context.Context, run *model.Run) {
	l.recorder.RecordRunEnd(ctx, run)
}

var _ port.RunExecutionListener = (*MetricsRunListener)(nil)

// --- Chunk Listener ---

// MetricsChunkListener records one outcome sample and one duration sample per
// chunk. Submission start times are keyed by run ID and chunk sequence so one
// listener instance shared across runs never crosses their samples.
type MetricsChunkListener struct {
	recorder metrics.MetricRecorder

	mu      sync.Mutex
	started map[string]time.Time
}

func NewMetricsChunkListener(recorder metrics.MetricRecorder) port.ChunkListener {
	return &MetricsChunkListener{
		recorder: recorder,
		started:  make(map[string]time.Time),
	}
}

func chunkKey(run *model.Run, chunk model.Chunk) string {
	return fmt.Sprintf("%s/%d", run.ID, chunk.Sequence)
}

func (l *MetricsChunkListener) BeforeChunk(ctx context.Context, run *model.Run, chunk model.Chunk) {
	l.mu.Lock()
	l.started[chunkKey(run, chunk)] = time.Now()
	l.mu.Unlock()
}

func (l *MetricsChunkListener) AfterChunk(ctx context.Context, run *model.Run, chunk model.Chunk, outcome model.RemoteOutcome) {
	l.recorder.RecordChunkOutcome(ctx, run.Name, chunk.Size(), outcome)

	key := chunkKey(run, chunk)
	l.mu.Lock()
	startedAt, ok := l.started[key]
	if ok {
		delete(l.started, key)
	}
	l.mu.Unlock()

	if ok {
		l.recorder.RecordDuration(ctx, "chunk_execution", time.Since(startedAt), map[string]string{"run": run.Name})
	}
}

var _ port.ChunkListener = (*MetricsChunkListener)(nil)
