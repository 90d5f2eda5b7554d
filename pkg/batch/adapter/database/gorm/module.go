package gorm

import (
	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
)

// Module exports the components of the gorm adapter package for dependency injection
// (excluding concrete DB Providers, which live in their own subpackages).
var Module = fx.Options(
	fx.Provide(NewGormTransactionManagerFactory), // Provides the TransactionManagerFactory.
	fx.Provide(fx.Annotate( // Provides the GormDBConnectionResolver with specific annotations.
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
		fx.As(new(coreAdapter.ResourceConnectionResolver)), // Also provides as coreAdapter.ResourceConnectionResolver.
	)),
)
