package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/setwave/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// SimpleRunExplorer is a simple implementation of the RunExplorer interface.
// It queries the execution journal through the ExecutionRepository.
type SimpleRunExplorer struct {
	repo repository.ExecutionRepository
}

// Verify that SimpleRunExplorer implements the RunExplorer interface.
var _ RunExplorer = (*SimpleRunExplorer)(nil)

// NewSimpleRunExplorer creates a new instance of SimpleRunExplorer.
func NewSimpleRunExplorer(repo repository.ExecutionRepository) *SimpleRunExplorer {
	return &SimpleRunExplorer{
		repo: repo,
	}
}

// GetRunExecution retrieves a RunExecution by its ID.
func (e *SimpleRunExplorer) GetRunExecution(ctx context.Context, executionID string) (*model.RunExecution, error) {
	execution, err := e.repo.FindRunExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("run_explorer", fmt.Sprintf("failed to retrieve RunExecution (ID: %s)", executionID), err, false, false)
	}
	logger.Debugf("Retrieved RunExecution (ID: %s) from the journal.", executionID)
	return execution, nil
}

// GetLatestRunExecution retrieves the most recently created RunExecution for
// the given run name.
func (e *SimpleRunExplorer) GetLatestRunExecution(ctx context.Context, runName string) (*model.RunExecution, error) {
	execution, err := e.repo.FindLatestRunExecutionByName(ctx, runName)
	if err != nil {
		return nil, exception.NewBatchError("run_explorer", fmt.Sprintf("failed to retrieve the latest RunExecution for run '%s'", runName), err, false, false)
	}
	logger.Debugf("Retrieved latest RunExecution (ID: %s) for run '%s'.", execution.ID, runName)
	return execution, nil
}

// CountRunExecutions counts the journaled executions of the given run name.
func (e *SimpleRunExplorer) CountRunExecutions(ctx context.Context, runName string) (int, error) {
	count, err := e.repo.CountRunExecutionsByName(ctx, runName)
	if err != nil {
		return 0, exception.NewBatchError("run_explorer", fmt.Sprintf("failed to count RunExecutions for run '%s'", runName), err, false, false)
	}
	return count, nil
}

// GetChunkExecutions retrieves all ChunkExecutions belonging to the given
// RunExecution, ordered by chunk sequence.
func (e *SimpleRunExplorer) GetChunkExecutions(ctx context.Context, runExecutionID string) ([]*model.ChunkExecution, error) {
	executions, err := e.repo.FindChunkExecutionsByRunExecutionID(ctx, runExecutionID)
	if err != nil {
		return nil, exception.NewBatchError("run_explorer", fmt.Sprintf("failed to retrieve ChunkExecutions for RunExecution (ID: %s)", runExecutionID), err, false, false)
	}
	logger.Debugf("Retrieved %d ChunkExecution(s) for RunExecution (ID: %s).", len(executions), runExecutionID)
	return executions, nil
}
