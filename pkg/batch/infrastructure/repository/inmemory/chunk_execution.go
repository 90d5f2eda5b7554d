package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// SaveChunkExecution persists a new ChunkExecution.
// It returns an error if a ChunkExecution with the same ID already exists.
func (r *InMemoryExecutionRepository) SaveChunkExecution(ctx context.Context, execution *model.ChunkExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chunkExecutions[execution.ID]; exists {
		return fmt.Errorf("ChunkExecution with ID %s already exists", execution.ID)
	}
	r.chunkExecutions[execution.ID] = execution
	return nil
}

// UpdateChunkExecution updates an existing ChunkExecution.
// It returns an error if the ChunkExecution with the given ID is not found.
func (r *InMemoryExecutionRepository) UpdateChunkExecution(ctx context.Context, execution *model.ChunkExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chunkExecutions[execution.ID]; !exists {
		return fmt.Errorf("ChunkExecution with ID %s not found for update", execution.ID)
	}
	r.chunkExecutions[execution.ID] = execution
	return nil
}

// FindChunkExecutionsByRunExecutionID finds all ChunkExecutions associated with
// the specified RunExecution, ordered by chunk sequence.
func (r *InMemoryExecutionRepository) FindChunkExecutionsByRunExecutionID(ctx context.Context, runExecutionID string) ([]*model.ChunkExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executions []*model.ChunkExecution
	for _, ce := range r.chunkExecutions {
		if ce.RunExecutionID == runExecutionID {
			// Deep copy to prevent external modification of internal state
			cloned := *ce
			executions = append(executions, &cloned)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].Sequence < executions[j].Sequence
	})

	return executions, nil
}
