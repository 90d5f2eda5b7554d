package metrics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	listenermetrics "github.com/tigerroll/setwave/pkg/batch/listener/metrics"
)

// recordingRecorder captures every recorded sample for assertions.
type recordingRecorder struct {
	mu            sync.Mutex
	runStarts     []string
	runEnds       []string
	chunkOutcomes []recordedOutcome
	notifications []recordedNotification
	durations     []recordedDuration
}

type recordedOutcome struct {
	runName     string
	recordCount int
	outcome     model.RemoteOutcome
}

type recordedNotification struct {
	runName   string
	delivered bool
}

type recordedDuration struct {
	name string
	tags map[string]string
}

func (r *recordingRecorder) RecordRunStart(ctx context.Context, run *model.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runStarts = append(r.runStarts, run.Name)
}

func (r *recordingRecorder) RecordRunEnd(ctx context.Context, run *model.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runEnds = append(r.runEnds, run.Name)
}

func (r *recordingRecorder) RecordChunkOutcome(ctx context.Context, runName string, recordCount int, outcome model.RemoteOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkOutcomes = append(r.chunkOutcomes, recordedOutcome{runName: runName, recordCount: recordCount, outcome: outcome})
}

func (r *recordingRecorder) RecordNotification(ctx context.Context, runName string, delivered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, recordedNotification{runName: runName, delivered: delivered})
}

func (r *recordingRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, recordedDuration{name: name, tags: tags})
}

func (r *recordingRecorder) durationNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.durations))
	for _, d := range r.durations {
		names = append(names, d.name)
	}
	return names
}

var _ metrics.MetricRecorder = (*recordingRecorder)(nil)

// blockingRecorder blocks inside the first RecordDuration call until released,
// pinning the worker goroutine so queue overflow can be provoked.
type blockingRecorder struct {
	recordingRecorder
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.once.Do(func() { close(r.started) })
	<-r.release
	r.recordingRecorder.RecordDuration(ctx, name, duration, tags)
}

func newTestRun(t *testing.T) *model.Run {
	t.Helper()
	run, err := model.NewRun("nightly-purge", "SELECT id FROM stale_records", "delete(ids);", false)
	require.NoError(t, err)
	return run
}

func TestAsyncMetricRecorderForwardsEvents(t *testing.T) {
	rec := &recordingRecorder{}
	async := listenermetrics.NewAsyncMetricRecorder(16, rec)

	ctx := context.Background()
	run := newTestRun(t)
	async.RecordRunStart(ctx, run)
	async.RecordChunkOutcome(ctx, run.Name, 200, model.NewSuccessOutcome())
	async.RecordChunkOutcome(ctx, run.Name, 37, model.NewFailureOutcome(model.FailureKindTransport, "transport: connection refused"))
	async.RecordNotification(ctx, run.Name, true)
	async.RecordDuration(ctx, "chunk_execution", 150*time.Millisecond, map[string]string{"run": run.Name})
	async.RecordRunEnd(ctx, run)

	// Close drains the queue, so every event is visible afterwards.
	async.Close()

	assert.Equal(t, []string{"nightly-purge"}, rec.runStarts)
	assert.Equal(t, []string{"nightly-purge"}, rec.runEnds)
	require.Len(t, rec.chunkOutcomes, 2)
	assert.Equal(t, 200, rec.chunkOutcomes[0].recordCount)
	assert.True(t, rec.chunkOutcomes[0].outcome.Succeeded)
	assert.Equal(t, model.FailureKindTransport, rec.chunkOutcomes[1].outcome.FailureKind)
	require.Len(t, rec.notifications, 1)
	assert.True(t, rec.notifications[0].delivered)
	assert.Equal(t, []string{"chunk_execution"}, rec.durationNames())
}

func TestAsyncMetricRecorderDiscardsWhenQueueIsFull(t *testing.T) {
	rec := &blockingRecorder{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	async := listenermetrics.NewAsyncMetricRecorder(1, rec)

	ctx := context.Background()
	async.RecordDuration(ctx, "op-1", time.Second, nil)
	// The worker is now blocked inside the first record call.
	<-rec.started
	async.RecordDuration(ctx, "op-2", time.Second, nil) // sits in the queue
	async.RecordDuration(ctx, "op-3", time.Second, nil) // queue full, discarded

	close(rec.release)
	async.Close()

	assert.Equal(t, []string{"op-1", "op-2"}, rec.durationNames())
}
