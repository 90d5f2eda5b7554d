package support

import (
	"go.uber.org/fx"
)

// Module defines Fx options related to RunFactory.
// Component builders are registered by the application assembly via fx.Invoke.
var Module = fx.Options(
	fx.Provide(NewRunFactory),
)
