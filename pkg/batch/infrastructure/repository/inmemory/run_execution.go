package inmemory

import (
	"context"
	"fmt"

	"github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/core/domain/repository"
)

// SaveRunExecution persists a new RunExecution.
// It returns an error if a RunExecution with the same ID already exists.
func (r *InMemoryExecutionRepository) SaveRunExecution(ctx context.Context, execution *model.RunExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runExecutions[execution.ID]; exists {
		return fmt.Errorf("RunExecution with ID %s already exists", execution.ID)
	}
	r.runExecutions[execution.ID] = execution
	return nil
}

// UpdateRunExecution updates an existing RunExecution.
// It returns an error if the RunExecution with the given ID is not found.
func (r *InMemoryExecutionRepository) UpdateRunExecution(ctx context.Context, execution *model.RunExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runExecutions[execution.ID]; !exists {
		return fmt.Errorf("RunExecution with ID %s not found for update", execution.ID)
	}
	r.runExecutions[execution.ID] = execution
	return nil
}

// FindRunExecutionByID finds a RunExecution by its ID.
// It returns an error if the RunExecution is not found.
func (r *InMemoryExecutionRepository) FindRunExecutionByID(ctx context.Context, executionID string) (*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.runExecutions[executionID]
	if !ok {
		return nil, repository.ErrRunExecutionNotFound
	}
	return cloneRunExecution(execution), nil
}

// FindLatestRunExecutionByName finds the most recently created RunExecution for
// the given run name. It returns an error if no execution for that name exists.
func (r *InMemoryExecutionRepository) FindLatestRunExecutionByName(ctx context.Context, runName string) (*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.RunExecution
	for _, re := range r.runExecutions {
		if re.RunName != runName {
			continue
		}
		if latest == nil || re.CreateTime.After(latest.CreateTime) {
			latest = re
		}
	}
	if latest == nil {
		return nil, repository.ErrRunExecutionNotFound
	}
	return cloneRunExecution(latest), nil
}

// CountRunExecutionsByName returns the count of journaled executions for a given run name.
func (r *InMemoryExecutionRepository) CountRunExecutionsByName(ctx context.Context, runName string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, re := range r.runExecutions {
		if re.RunName == runName {
			count++
		}
	}
	return count, nil
}

// cloneRunExecution deep copies a RunExecution to prevent external modification
// of internal state. The failure log backing array must not be shared.
func cloneRunExecution(execution *model.RunExecution) *model.RunExecution {
	cloned := *execution
	cloned.Failures = execution.Failures.Entries()
	return &cloned
}
