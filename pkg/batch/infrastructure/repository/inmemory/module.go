// Package inmemory provides an in-memory implementation of the ExecutionRepository interface.
// This module integrates the in-memory repository into the application's dependency graph using Fx.
package inmemory

import (
	"go.uber.org/fx"

	dummy "github.com/tigerroll/setwave/pkg/batch/adapter/database/dummy" // Import of dummy module.
	repository "github.com/tigerroll/setwave/pkg/batch/core/domain/repository"
)

// Module is an Fx module that provides InMemoryExecutionRepository as a repository.ExecutionRepository interface.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemoryExecutionRepository,
			fx.As(new(repository.ExecutionRepository)),
		),
	),
	dummy.Module, // Automatically configure a dummy adapter when InMemoryExecutionRepository is being used.
)
