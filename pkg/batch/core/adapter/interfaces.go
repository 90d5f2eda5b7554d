// Package adapter defines abstractions for external resource connections
// (databases, object storage) used by the run engine. Concrete providers
// live under pkg/batch/adapter.
package adapter

import (
	"context"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// ResourceConnection represents a generic connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "mysql", "gcs").
	Type() string
	// Name returns the connection name (e.g., "metadata", "exports").
	Name() string
}

// ResourceProvider is an interface responsible for providing resource connections based on configuration.
type ResourceProvider interface {
	// GetConnection retrieves a resource connection with the specified name.
	GetConnection(name string) (ResourceConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the type of resource handled by this provider (e.g., "database", "storage").
	Type() string
}

// ResourceConnectionResolver resolves the required resource connection
// instance based on the execution context.
type ResourceConnectionResolver interface {
	// ResolveConnection resolves a resource connection instance by name.
	// This method is responsible for ensuring that the returned connection is
	// valid and re-established if necessary.
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)

	// ResolveConnectionName resolves the name of the resource connection for
	// the given run. This allows run definition properties to select a
	// connection dynamically; defaultName is returned when nothing overrides it.
	ResolveConnectionName(ctx context.Context, run *model.Run, defaultName string) (string, error)
}
