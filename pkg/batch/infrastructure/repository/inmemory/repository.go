// Package inmemory provides an in-memory implementation of the ExecutionRepository interface.
// It stores all journal records in maps within memory, suitable for testing and
// scenarios where persistence is not required.
package inmemory

import (
	"sync"

	"github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// InMemoryExecutionRepository is an in-memory implementation of the ExecutionRepository interface.
// It holds all journal records in in-memory maps.
type InMemoryExecutionRepository struct {
	runExecutions   map[string]*model.RunExecution
	chunkExecutions map[string]*model.ChunkExecution
	mu              sync.RWMutex // Mutex to protect concurrent access to maps.
}

// NewInMemoryExecutionRepository creates and initializes a new instance of InMemoryExecutionRepository.
func NewInMemoryExecutionRepository() *InMemoryExecutionRepository {
	return &InMemoryExecutionRepository{
		runExecutions:   make(map[string]*model.RunExecution),
		chunkExecutions: make(map[string]*model.ChunkExecution),
	}
}

// Close releases resources used by the repository.
// As an in-memory repository, it holds no external resources, so this method always returns nil.
func (r *InMemoryExecutionRepository) Close() error {
	return nil
}
