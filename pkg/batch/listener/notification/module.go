package notification

import (
	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/core/ports"
)

// Module provides the completion report notifier selected by configuration.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewNotifier,
		fx.As(new(ports.Notifier)),
	)),
)
