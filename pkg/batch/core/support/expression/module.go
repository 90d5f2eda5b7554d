package expression

import (
	"go.uber.org/fx"
)

// Module defines FX options related to ExpressionResolver.
var Module = fx.Options(
	// Provides DefaultExpressionResolver as the port.ExpressionResolver interface.
	fx.Provide(NewDefaultExpressionResolver),
)
