package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/setwave/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/support/util/configbinder"
)

// DecodeStorageConfig extracts and binds the named connection's configuration
// from the 'storage' section of the application configuration.
func DecodeStorageConfig(cfg *config.Config, name string) (storageConfig.StorageConfig, error) {
	var storageCfg storageConfig.StorageConfig
	if _, ok := cfg.Setwave.StorageConfigs[name]; !ok {
		return storageCfg, fmt.Errorf("storage configuration '%s' not found in storage configs", name)
	}
	if err := configbinder.BindSection(cfg.Setwave.StorageConfigs, name, &storageCfg); err != nil {
		return storageCfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return storageCfg, nil
}

// ConnectionResolver is the default implementation of StorageConnectionResolver.
// It dispatches connection requests to the registered backend providers based
// on the 'type' field of the named storage configuration.
type ConnectionResolver struct {
	providers map[string]StorageProvider // Providers keyed by backend type (e.g., "local", "gcs").
	cfg       *config.Config
	// exprResolver expands #{...} expressions in connection name references. It may be nil.
	exprResolver port.ExpressionResolver
}

// NewConnectionResolver creates a new ConnectionResolver.
// It receives dependencies using Fx's parameter struct.
//
// Parameters:
//
//	p: An Fx parameter struct containing the collected StorageProviders, the
//	   application Config, and an optional ExpressionResolver for dynamic
//	   connection name references.
//
// Returns:
//
//	A new ConnectionResolver instance.
func NewConnectionResolver(p struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *config.Config
	// ExpressionResolver is used for dynamic connection name resolution.
	ExpressionResolver port.ExpressionResolver `optional:"true"`
}) *ConnectionResolver {
	providerMap := make(map[string]StorageProvider)
	for _, provider := range p.Providers {
		providerMap[provider.Type()] = provider
	}

	return &ConnectionResolver{
		providers:    providerMap,
		cfg:          p.Cfg,
		exprResolver: p.ExpressionResolver,
	}
}

// ResolveStorageConnection resolves a storage connection with the specified name.
// The backend provider is selected from the 'type' field of the named configuration.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	storageCfg, err := DecodeStorageConfig(r.cfg, name)
	if err != nil {
		return nil, fmt.Errorf("StorageConnectionResolver: %w", err)
	}

	provider, ok := r.providers[storageCfg.Type]
	if !ok {
		return nil, fmt.Errorf("StorageConnectionResolver: StorageProvider for type '%s' not found for connection '%s'", storageCfg.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("StorageConnectionResolver: Failed to get connection '%s': %w", name, err)
	}
	return conn, nil
}

// ResolveConnection is part of the coreAdapter.ResourceConnectionResolver interface.
// It is implemented by calling ResolveStorageConnection.
func (r *ConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// ResolveConnectionName is part of the coreAdapter.ResourceConnectionResolver interface.
// A connection reference may contain #{...} expressions (for example
// "#{run.name}_archive"); these are expanded against the current run before
// the name is returned. Plain references pass through unchanged.
func (r *ConnectionResolver) ResolveConnectionName(ctx context.Context, run *model.Run, defaultName string) (string, error) {
	if r.exprResolver != nil && strings.Contains(defaultName, "#{") {
		resolved, err := r.exprResolver.Resolve(ctx, defaultName, run)
		if err != nil {
			return "", fmt.Errorf("StorageConnectionResolver: failed to resolve connection name expression '%s': %w", defaultName, err)
		}
		if resolved != "" {
			return resolved, nil
		}
	}
	return defaultName, nil
}

// ResolveStorageConnectionName resolves the name of the storage connection for
// the given run. It applies the same logic as ResolveConnectionName.
func (r *ConnectionResolver) ResolveStorageConnectionName(ctx context.Context, run *model.Run, defaultName string) (string, error) {
	return r.ResolveConnectionName(ctx, run, defaultName)
}

// Verify that ConnectionResolver satisfies the resolver interfaces.
var _ StorageConnectionResolver = (*ConnectionResolver)(nil)
var _ coreAdapter.ResourceConnectionResolver = (*ConnectionResolver)(nil)
