package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/component/migration"
	"github.com/tigerroll/setwave/pkg/batch/core/support/expression"
)

// Module provides bootstrap-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewBatchInitializer),   // Provides the BatchInitializer.
	fx.Invoke(LoadRunDefinitionsHook), // Registers a lifecycle hook to load run definitions.
	fx.Invoke(ApplyLoggingConfigHook), // Applies the configured log level during graph construction.

	expression.Module, // Provides the ExpressionResolver.

	// Registers a lifecycle hook to apply execution journal migrations at application startup.
	fx.Invoke(runJournalMigrationsHook),
)

// runJournalMigrationsHook registers an Fx lifecycle hook that applies pending
// schema migrations before anything touches the journal database. The Runner
// itself decides whether migrations are enabled for this configuration.
func runJournalMigrationsHook(lc fx.Lifecycle, runner *migration.Runner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return runner.Run(ctx)
		},
	})
}
