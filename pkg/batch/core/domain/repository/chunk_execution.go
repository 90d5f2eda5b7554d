package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// ErrChunkExecutionNotFound is the error returned when a ChunkExecution is not found.
var ErrChunkExecutionNotFound = errors.New("chunk execution not found")

// ChunkExecution defines the journal operations for chunk-level execution records.
type ChunkExecution interface {
	// SaveChunkExecution persists a new ChunkExecution.
	SaveChunkExecution(ctx context.Context, execution *model.ChunkExecution) error

	// UpdateChunkExecution updates the state of an existing ChunkExecution.
	// Implementations detect concurrent modification via the record version.
	UpdateChunkExecution(ctx context.Context, execution *model.ChunkExecution) error

	// FindChunkExecutionsByRunExecutionID finds all ChunkExecutions belonging to
	// the given RunExecution, ordered by chunk sequence.
	FindChunkExecutionsByRunExecutionID(ctx context.Context, runExecutionID string) ([]*model.ChunkExecution, error)
}
