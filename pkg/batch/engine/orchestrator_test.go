package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/engine"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
)

// fakeExecutor returns a scripted outcome per call and records every script
// it receives.
type fakeExecutor struct {
	scripts  []string
	outcomes map[int]model.RemoteOutcome
	calls    int
}

func (f *fakeExecutor) Execute(ctx context.Context, script string) model.RemoteOutcome {
	f.scripts = append(f.scripts, script)
	idx := f.calls
	f.calls++
	if outcome, ok := f.outcomes[idx]; ok {
		return outcome
	}
	return model.NewSuccessOutcome()
}

// fakeNotifier captures delivered reports.
type fakeNotifier struct {
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeNotifier) Deliver(ctx context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return f.err
}

// eventListener records the order of listener callbacks.
type eventListener struct {
	events []string
}

func (l *eventListener) BeforeRun(ctx context.Context, run *model.Run) {
	l.events = append(l.events, "before_run")
}

func (l *eventListener) AfterRun(ctx context.Context, run *model.Run) {
	l.events = append(l.events, "after_run")
}

func (l *eventListener) BeforeChunk(ctx context.Context, run *model.Run, chunk model.Chunk) {
	l.events = append(l.events, fmt.Sprintf("before_chunk_%d", chunk.Sequence))
}

func (l *eventListener) AfterChunk(ctx context.Context, run *model.Run, chunk model.Chunk, outcome model.RemoteOutcome) {
	l.events = append(l.events, fmt.Sprintf("after_chunk_%d_%t", chunk.Sequence, outcome.Succeeded))
}

func newTestRun(t *testing.T, notify bool) *model.Run {
	t.Helper()
	run, err := model.NewRun("nightly-purge", "SELECT id FROM events WHERE expired", "delete(ids);", notify)
	assert.NoError(t, err)
	return run
}

func TestChunkOrchestrator_ComposesScriptPerChunk(t *testing.T) {
	run := newTestRun(t, false)
	executor := &fakeExecutor{}
	orch := engine.NewChunkOrchestrator(run, executor, nil, nil, nil, nil)
	ctx := context.Background()

	query, err := orch.OnStart(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM events WHERE expired", query)
	assert.Equal(t, model.RunStateRunning, run.State)

	outcome, err := orch.OnChunk(ctx, model.NewChunk(0, []string{"a", "b"}))
	assert.NoError(t, err)
	assert.True(t, outcome.Succeeded)

	assert.Equal(t, []string{"ids = [\"a\",\"b\"];\ndelete(ids);"}, executor.scripts)
	assert.Equal(t, 1, run.ChunksProcessed)
	assert.Zero(t, run.FailureCount())
}

func TestChunkOrchestrator_RecordsFailuresInOrder(t *testing.T) {
	run := newTestRun(t, false)
	executor := &fakeExecutor{outcomes: map[int]model.RemoteOutcome{
		0: model.NewFailureOutcome(model.FailureKindTransport, "transport: connection refused"),
		2: model.NewFailureOutcome(model.FailureKindRemoteCompile, "compile problem: unexpected token (line 3, column 7)"),
	}}
	orch := engine.NewChunkOrchestrator(run, executor, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)

	chunks := []model.Chunk{
		model.NewChunk(0, []string{"a"}),
		model.NewChunk(1, []string{"b"}),
		model.NewChunk(2, []string{"c"}),
	}
	for _, chunk := range chunks {
		outcome, err := orch.OnChunk(ctx, chunk)
		assert.NoError(t, err)
		// Remote failures come back as data, never as an error.
		_ = outcome
	}

	assert.Equal(t, 3, run.ChunksProcessed)
	assert.Equal(t, 2, run.FailureCount())
	assert.Equal(t, `["a"]: transport: connection refused`, run.Errors[0])
	assert.Equal(t, `["c"]: compile problem: unexpected token (line 3, column 7)`, run.Errors[1])
}

func TestChunkOrchestrator_OnChunkBeforeStart(t *testing.T) {
	run := newTestRun(t, false)
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, nil, nil, nil, nil)

	_, err := orch.OnChunk(context.Background(), model.NewChunk(0, []string{"a"}))
	assert.Error(t, err)
	assert.True(t, exception.IsLifecycleViolation(err))
}

func TestChunkOrchestrator_EmptyChunk(t *testing.T) {
	run := newTestRun(t, false)
	executor := &fakeExecutor{}
	orch := engine.NewChunkOrchestrator(run, executor, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)

	_, err = orch.OnChunk(ctx, model.NewChunk(0, nil))
	assert.Error(t, err)
	assert.True(t, exception.IsInvalidChunk(err))
	assert.Zero(t, executor.calls)
	assert.Zero(t, run.ChunksProcessed)
}

func TestChunkOrchestrator_DoubleStartAndDoubleFinish(t *testing.T) {
	run := newTestRun(t, false)
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)

	_, err = orch.OnStart(ctx)
	assert.True(t, exception.IsLifecycleViolation(err))

	_, err = orch.OnFinish(ctx)
	assert.NoError(t, err)

	_, err = orch.OnFinish(ctx)
	assert.True(t, exception.IsLifecycleViolation(err))
}

func TestChunkOrchestrator_ReportWithoutErrors(t *testing.T) {
	run := newTestRun(t, true)
	notifier := &fakeNotifier{}
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, notifier, nil, nil, nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)

	report, err := orch.OnFinish(ctx)
	assert.NoError(t, err)
	assert.Equal(t, `run "nightly-purge" finished: no errors`, report.Subject)
	assert.Equal(t, "Query:\nSELECT id FROM events WHERE expired\n\nTemplate:\ndelete(ids);\n\nErrors (0):\nnone", report.Body)
	assert.Zero(t, report.FailureCount)

	// The report was delivered as-is.
	assert.Equal(t, []string{report.Subject}, notifier.subjects)
	assert.Equal(t, []string{report.Body}, notifier.bodies)
}

func TestChunkOrchestrator_ReportWithErrors(t *testing.T) {
	run := newTestRun(t, true)
	executor := &fakeExecutor{outcomes: map[int]model.RemoteOutcome{
		0: model.NewFailureOutcome(model.FailureKindRemoteRuntime, "remote execution failed"),
		1: model.NewFailureOutcome(model.FailureKindServerStatus, "unexpected server response [500]: oops"),
	}}
	notifier := &fakeNotifier{}
	orch := engine.NewChunkOrchestrator(run, executor, notifier, nil, nil, nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)

	_, err = orch.OnChunk(ctx, model.NewChunk(0, []string{"a"}))
	assert.NoError(t, err)
	_, err = orch.OnChunk(ctx, model.NewChunk(1, []string{"b", "c"}))
	assert.NoError(t, err)

	report, err := orch.OnFinish(ctx)
	assert.NoError(t, err)
	assert.Equal(t, `run "nightly-purge" finished: 2 error(s)`, report.Subject)
	assert.Contains(t, report.Body, "Errors (2):\n")
	assert.Contains(t, report.Body, "[\"a\"]: remote execution failed\n[\"b\",\"c\"]: unexpected server response [500]: oops")
	assert.Equal(t, 2, report.FailureCount)
}

func TestChunkOrchestrator_NotificationSkippedWhenNotRequested(t *testing.T) {
	run := newTestRun(t, false)
	notifier := &fakeNotifier{}
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, notifier, nil, nil, nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)
	_, err = orch.OnFinish(ctx)
	assert.NoError(t, err)

	assert.Empty(t, notifier.subjects)
}

func TestChunkOrchestrator_DeliveryFailureDoesNotFailRun(t *testing.T) {
	run := newTestRun(t, true)
	notifier := &fakeNotifier{err: errors.New("webhook unreachable")}
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, notifier, nil, nil, nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)

	report, err := orch.OnFinish(ctx)
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateFinished, run.State)
	assert.Zero(t, report.FailureCount) // Delivery failure is not a run failure.
}

func TestChunkOrchestrator_ListenerOrdering(t *testing.T) {
	run := newTestRun(t, false)
	listener := &eventListener{}
	orch := engine.NewChunkOrchestrator(run, &fakeExecutor{}, nil,
		[]port.RunExecutionListener{listener},
		[]port.ChunkListener{listener},
		nil)
	ctx := context.Background()

	_, err := orch.OnStart(ctx)
	assert.NoError(t, err)
	_, err = orch.OnChunk(ctx, model.NewChunk(0, []string{"a"}))
	assert.NoError(t, err)
	_, err = orch.OnFinish(ctx)
	assert.NoError(t, err)

	assert.Equal(t, []string{
		"before_run",
		"before_chunk_0",
		"after_chunk_0_true",
		"after_run",
	}, listener.events)
}
