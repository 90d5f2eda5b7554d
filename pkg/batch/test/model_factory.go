// Package test provides shared fixtures for the engine's test suites: domain
// model factories and mock implementations of the database adapter ports.
package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// NewTestRun creates a NOT_STARTED run with placeholder query and template.
func NewTestRun(t *testing.T, name string) *model.Run {
	t.Helper()
	run, err := model.NewRun(name, "SELECT id FROM records", "records.remove(ids)", false)
	require.NoError(t, err)
	return run
}

// NewRunningTestRun creates a run already transitioned to RUNNING.
func NewRunningTestRun(t *testing.T, name string) *model.Run {
	t.Helper()
	run := NewTestRun(t, name)
	require.NoError(t, run.MarkAsStarted())
	return run
}

// NewFinishedTestRun creates a FINISHED run carrying one recorded failure and
// one processed chunk per given detail. A run without details finishes clean.
func NewFinishedTestRun(t *testing.T, name string, failureDetails ...string) *model.Run {
	t.Helper()
	run := NewRunningTestRun(t, name)
	for i, detail := range failureDetails {
		run.RecordFailure(model.NewChunk(i, []string{"rec-1", "rec-2"}).Descriptor(), detail)
		run.MarkChunkProcessed()
	}
	if len(failureDetails) == 0 {
		run.MarkChunkProcessed()
	}
	require.NoError(t, run.MarkAsFinished())
	return run
}

// NewTestRunExecution creates the journal record for a run that has not
// started yet, the state in which the driver first persists it.
func NewTestRunExecution(t *testing.T, runName string) *model.RunExecution {
	t.Helper()
	return model.NewRunExecution(NewTestRun(t, runName))
}

// NewTestChunkExecution creates a journal record for one chunk submission.
func NewTestChunkExecution(runExecutionID string, sequence int, ids ...string) *model.ChunkExecution {
	if len(ids) == 0 {
		ids = []string{"rec-1"}
	}
	return model.NewChunkExecution(runExecutionID, model.NewChunk(sequence, ids))
}
