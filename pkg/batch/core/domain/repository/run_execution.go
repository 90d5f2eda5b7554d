package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// ErrRunExecutionNotFound is the error returned when a RunExecution is not found.
var ErrRunExecutionNotFound = errors.New("run execution not found")

// RunExecution defines the journal operations for run-level execution records.
type RunExecution interface {
	// SaveRunExecution persists a new RunExecution.
	SaveRunExecution(ctx context.Context, execution *model.RunExecution) error

	// UpdateRunExecution updates the state of an existing RunExecution.
	// Implementations detect concurrent modification via the record version.
	UpdateRunExecution(ctx context.Context, execution *model.RunExecution) error

	// FindRunExecutionByID finds a RunExecution by its ID.
	FindRunExecutionByID(ctx context.Context, executionID string) (*model.RunExecution, error)

	// FindLatestRunExecutionByName finds the most recently created RunExecution
	// for the given run name.
	FindLatestRunExecutionByName(ctx context.Context, runName string) (*model.RunExecution, error)

	// CountRunExecutionsByName counts how many executions of the given run name
	// have been journaled.
	CountRunExecutionsByName(ctx context.Context, runName string) (int, error)
}
