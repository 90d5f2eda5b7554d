package remote

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
)

// Module provides the remote execution client and its session source.
var Module = fx.Options(
	fx.Provide(NewSessionProvider),
	fx.Provide(fx.Annotate(
		NewClient,
		fx.As(new(port.ScriptExecutor)),
	)),
)
