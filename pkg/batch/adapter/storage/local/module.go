// Package local provides the Fx module for the local storage adapter.
package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/setwave/pkg/batch/adapter/storage"
)

// Module is the Fx module for the local storage adapter.
// It provides the LocalProvider to the Fx application graph.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewLocalProvider,
			fx.ResultTags(storageAdapter.StorageProviderGroup),
		),
	),
)
