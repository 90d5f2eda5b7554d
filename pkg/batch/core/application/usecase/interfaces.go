package usecase

import (
	"context"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// RunLauncher is the interface for launching a configured run end to end.
type RunLauncher interface {
	// Launch assembles the run for the given run definition ID and drives it
	// to completion. An empty ID selects the first loaded definition.
	// The returned report summarizes the finished run; the error is non-nil
	// only for host-level failures, never for individual chunk failures.
	Launch(ctx context.Context, runID string) (model.CompletionReport, error)
}

// RunExplorer is the interface for querying the execution journal.
type RunExplorer interface {
	// GetRunExecution retrieves a RunExecution by its ID.
	GetRunExecution(ctx context.Context, executionID string) (*model.RunExecution, error)

	// GetLatestRunExecution retrieves the most recently created RunExecution
	// for the given run name.
	GetLatestRunExecution(ctx context.Context, runName string) (*model.RunExecution, error)

	// CountRunExecutions counts how many executions of the given run name have
	// been journaled.
	CountRunExecutions(ctx context.Context, runName string) (int, error)

	// GetChunkExecutions retrieves all ChunkExecutions belonging to the given
	// RunExecution, ordered by chunk sequence.
	GetChunkExecutions(ctx context.Context, runExecutionID string) ([]*model.ChunkExecution, error)
}
