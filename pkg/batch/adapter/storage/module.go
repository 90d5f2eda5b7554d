// Package storage provides the Fx module for the storage connection resolver.
package storage

import (
	"go.uber.org/fx"
)

// Module provides the StorageConnectionResolver to the Fx application graph.
// Backend providers (local, gcs) are supplied by their own modules through the
// storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.As(new(StorageConnectionResolver)),
	)),
)
