package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/storefront/pkg/web/adapter/storage/config"
	coreAdapter "github.com/tigerroll/storefront/pkg/web/core/adapter"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// DefaultConnectionResolver picks the provider of a connection by its configured type.
type DefaultConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *config.Config
}

// ResolverParams defines the dependencies of NewDefaultConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *config.Config
}

// NewDefaultConnectionResolver creates a new DefaultConnectionResolver.
func NewDefaultConnectionResolver(p ResolverParams) *DefaultConnectionResolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &DefaultConnectionResolver{providers: providers, cfg: p.Cfg}
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *DefaultConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	raw, ok := r.cfg.Storefront.StorageConfigs[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}
	cfg, err := storageConfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage connection '%s': %w", name, err)
	}

	provider, ok := r.providers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", cfg.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, cfg.Type, err)
	}
	return conn, nil
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *DefaultConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// ResolveStorageConnectionName returns appLabel when a storage connection is configured
// under that name, then defaultName, then storefront.infrastructure.export_storage_ref.
func (r *DefaultConnectionResolver) ResolveStorageConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	if appLabel != "" {
		if _, ok := r.cfg.Storefront.StorageConfigs[appLabel]; ok {
			return appLabel, nil
		}
	}
	if defaultName == "" {
		defaultName = r.cfg.Storefront.Infrastructure.ExportStorageRef
	}
	if _, ok := r.cfg.Storefront.StorageConfigs[defaultName]; !ok {
		return "", fmt.Errorf("no storage connection configured for app '%s' (tried '%s')", appLabel, defaultName)
	}
	logger.Debugf("Resolved storage connection '%s' for app '%s'.", defaultName, appLabel)
	return defaultName, nil
}

// ResolveConnectionName implements coreAdapter.ResourceConnectionResolver.
func (r *DefaultConnectionResolver) ResolveConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	return r.ResolveStorageConnectionName(ctx, appLabel, defaultName)
}

// CloseAll closes the connections of every provider.
func (r *DefaultConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ StorageConnectionResolver = (*DefaultConnectionResolver)(nil)
