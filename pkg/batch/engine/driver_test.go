package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database/dummy"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	"github.com/tigerroll/setwave/pkg/batch/engine"
	"github.com/tigerroll/setwave/pkg/batch/infrastructure/repository/inmemory"
)

// sliceSource yields a fixed identifier sequence.
type sliceSource struct {
	ids     []string
	pos     int
	query   string
	openErr error
	closed  bool
}

func (s *sliceSource) Open(ctx context.Context, query string) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.query = query
	s.pos = 0
	return nil
}

func (s *sliceSource) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.ids) {
		return "", port.ErrNoMoreIDs
	}
	id := s.ids[s.pos]
	s.pos++
	return id, nil
}

func (s *sliceSource) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func TestRunDriver_Execute(t *testing.T) {
	run := newTestRun(t, true)
	executor := &fakeExecutor{outcomes: map[int]model.RemoteOutcome{
		1: model.NewFailureOutcome(model.FailureKindRemoteRuntime, "NullPointerException\nat purge line 1"),
	}}
	notifier := &fakeNotifier{}
	orch := engine.NewChunkOrchestrator(run, executor, notifier, nil, nil, nil)

	repo := inmemory.NewInMemoryExecutionRepository()
	txManager := dummy.NewDummyTxManagerFactory().NewTransactionManager(nil)
	source := &sliceSource{ids: []string{"a", "b", "c"}}

	driver := engine.NewRunDriver(run, orch, source, repo, txManager, engine.RunDriverOptions{ChunkSize: 2})

	report, err := driver.Execute(context.Background())
	assert.NoError(t, err)

	// Three identifiers at chunk size two make two chunks; the second failed.
	assert.Equal(t, model.RunStateFinished, run.State)
	assert.Equal(t, 2, run.ChunksProcessed)
	assert.Equal(t, 1, report.FailureCount)
	assert.Equal(t, `run "nightly-purge" finished: 1 error(s)`, report.Subject)
	assert.Contains(t, report.Body, "[\"c\"]: NullPointerException\nat purge line 1")

	// The source received the run's query and was closed.
	assert.Equal(t, run.Query, source.query)
	assert.True(t, source.closed)

	// The report was delivered once.
	assert.Len(t, notifier.subjects, 1)

	// The journal reflects the finished run.
	ctx := context.Background()
	runExecution, err := repo.FindLatestRunExecutionByName(ctx, "nightly-purge")
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateFinished, runExecution.State)
	assert.Equal(t, 2, runExecution.ChunkCount)
	assert.Equal(t, 1, runExecution.FailureCount)
	assert.NotNil(t, runExecution.EndTime)

	chunkExecutions, err := repo.FindChunkExecutionsByRunExecutionID(ctx, runExecution.ID)
	assert.NoError(t, err)
	assert.Len(t, chunkExecutions, 2)
	assert.True(t, chunkExecutions[0].Succeeded)
	assert.Equal(t, `["a","b"]`, chunkExecutions[0].Descriptor)
	assert.Equal(t, 2, chunkExecutions[0].RecordCount)
	assert.False(t, chunkExecutions[1].Succeeded)
	assert.Equal(t, model.FailureKindRemoteRuntime, chunkExecutions[1].FailureKind)
	assert.NotNil(t, chunkExecutions[1].CompletedAt)
}

func TestRunDriver_EmptySource(t *testing.T) {
	run := newTestRun(t, true)
	executor := &fakeExecutor{}
	notifier := &fakeNotifier{}
	orch := engine.NewChunkOrchestrator(run, executor, notifier, nil, nil, nil)

	repo := inmemory.NewInMemoryExecutionRepository()
	source := &sliceSource{ids: nil}

	driver := engine.NewRunDriver(run, orch, source, repo, nil, engine.RunDriverOptions{})

	report, err := driver.Execute(context.Background())
	assert.NoError(t, err)

	// Zero chunks still finalize with an explicit success report.
	assert.Equal(t, model.RunStateFinished, run.State)
	assert.Zero(t, executor.calls)
	assert.Zero(t, report.FailureCount)
	assert.Equal(t, `run "nightly-purge" finished: no errors`, report.Subject)
	assert.Contains(t, report.Body, "Errors (0):\nnone")
	assert.Len(t, notifier.subjects, 1)
}

func TestRunDriver_SourceFailureAbortsWithoutFinalizing(t *testing.T) {
	run := newTestRun(t, true)
	notifier := &fakeNotifier{}
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, notifier, nil, nil, nil)

	repo := inmemory.NewInMemoryExecutionRepository()
	source := &sliceSource{openErr: errors.New("connection refused")}

	driver := engine.NewRunDriver(run, orch, source, repo, nil, engine.RunDriverOptions{})

	_, err := driver.Execute(context.Background())
	assert.Error(t, err)

	// A run that never materialized its identifiers has nothing to report.
	assert.Equal(t, model.RunStateRunning, run.State)
	assert.Empty(t, notifier.subjects)

	runExecution, err := repo.FindLatestRunExecutionByName(context.Background(), "nightly-purge")
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateRunning, runExecution.State)
	assert.Nil(t, runExecution.EndTime)
}

func TestRunDriver_CancelledContext(t *testing.T) {
	run := newTestRun(t, false)
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, nil, nil, nil, nil)

	source := &sliceSource{ids: []string{"a", "b"}}
	driver := engine.NewRunDriver(run, orch, source, nil, nil, engine.RunDriverOptions{ChunkSize: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := driver.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, run.ChunksProcessed)
}

func TestRunDriver_RunsWithoutJournal(t *testing.T) {
	run := newTestRun(t, false)
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, nil, nil, nil, nil)
	source := &sliceSource{ids: []string{"a"}}

	driver := engine.NewRunDriver(run, orch, source, nil, nil, engine.RunDriverOptions{})

	report, err := driver.Execute(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateFinished, run.State)
	assert.Zero(t, report.FailureCount)
}

// spanTracer records span starts, span ends, and recorded errors.
type spanTracer struct {
	runSpans    []string
	chunkSpans  []int
	endedRuns   int
	endedChunks int
	errModules  []string
}

func (s *spanTracer) StartRunSpan(ctx context.Context, run *model.Run) (context.Context, func()) {
	s.runSpans = append(s.runSpans, run.Name)
	return ctx, func() { s.endedRuns++ }
}

func (s *spanTracer) StartChunkSpan(ctx context.Context, run *model.Run, chunk model.Chunk) (context.Context, func()) {
	s.chunkSpans = append(s.chunkSpans, chunk.Sequence)
	return ctx, func() { s.endedChunks++ }
}

func (s *spanTracer) RecordError(ctx context.Context, module string, err error) {
	s.errModules = append(s.errModules, module)
}

func (s *spanTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ metrics.Tracer = (*spanTracer)(nil)

func TestRunDriver_SpansRunAndChunks(t *testing.T) {
	run := newTestRun(t, false)
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, nil, nil, nil, nil)
	source := &sliceSource{ids: []string{"a", "b", "c"}}
	tracer := &spanTracer{}

	driver := engine.NewRunDriver(run, orch, source, nil, nil, engine.RunDriverOptions{ChunkSize: 2, Tracer: tracer})

	_, err := driver.Execute(context.Background())
	assert.NoError(t, err)

	// One run span and one span per chunk, all ended.
	assert.Equal(t, []string{"nightly-purge"}, tracer.runSpans)
	assert.Equal(t, []int{0, 1}, tracer.chunkSpans)
	assert.Equal(t, 1, tracer.endedRuns)
	assert.Equal(t, 2, tracer.endedChunks)
	assert.Empty(t, tracer.errModules)
}

func TestRunDriver_RecordsSourceFailureOnSpan(t *testing.T) {
	run := newTestRun(t, false)
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, nil, nil, nil, nil)
	source := &sliceSource{openErr: errors.New("connection refused")}
	tracer := &spanTracer{}

	driver := engine.NewRunDriver(run, orch, source, nil, nil, engine.RunDriverOptions{Tracer: tracer})

	_, err := driver.Execute(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"engine"}, tracer.errModules)
	assert.Equal(t, 1, tracer.endedRuns)
	assert.Zero(t, tracer.endedChunks)
}
