package usecase

import (
	"go.uber.org/fx"
)

// Module is the Fx module for the RunLauncher and RunExplorer.
var Module = fx.Options(
	// Provide RunLauncher (uses constructor defined in simple_runlauncher.go)
	fx.Provide(NewSimpleRunLauncher),
	fx.Provide(fx.Annotate(
		func(launcher *SimpleRunLauncher) RunLauncher { return launcher },
		fx.As(new(RunLauncher)),
	)),

	// Provide RunExplorer
	fx.Provide(fx.Annotate(
		NewSimpleRunExplorer,
		fx.As(new(RunExplorer)),
	)),
)
