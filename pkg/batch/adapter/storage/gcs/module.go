// Package gcs provides the Fx module for the GCS storage adapter.
package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/setwave/pkg/batch/adapter/storage"
)

// Module is the Fx module for the GCS storage adapter.
// It provides the GCSProvider to the Fx application graph.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewGCSProvider,
			fx.ResultTags(storageAdapter.StorageProviderGroup),
		),
	),
)
