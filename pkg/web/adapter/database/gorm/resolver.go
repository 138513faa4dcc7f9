package gorm

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	dbconfig "github.com/tigerroll/storefront/pkg/web/adapter/database/config"
	coreAdapter "github.com/tigerroll/storefront/pkg/web/core/adapter"
	config "github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// GormDBConnectionResolver is the gorm implementation of database.DBConnectionResolver.
type GormDBConnectionResolver struct {
	dbProviders map[string]database.DBProvider // keyed by database type
	cfg         *config.Config
}

// ResolverParams defines the dependencies of NewGormDBConnectionResolver.
type ResolverParams struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"`
	Cfg         *config.Config
}

// NewGormDBConnectionResolver creates a new GormDBConnectionResolver.
func NewGormDBConnectionResolver(p ResolverParams) *GormDBConnectionResolver {
	providerMap := make(map[string]database.DBProvider, len(p.DBProviders))
	for _, provider := range p.DBProviders {
		providerMap[provider.Type()] = provider
	}
	return &GormDBConnectionResolver{
		dbProviders: providerMap,
		cfg:         p.Cfg,
	}
}

// ResolveDBConnection resolves the named connection. A connection whose pool
// fails to answer a ping is reconnected once.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	rawConfig, ok := r.cfg.Storefront.AdaptorConfigs[name]
	if !ok {
		return nil, fmt.Errorf("DBConnectionResolver: database configuration '%s' not found", name)
	}
	dbConfig, err := dbconfig.Decode(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: connection '%s': %w", name, err)
	}

	provider, ok := r.dbProviders[dbConfig.Type]
	if !ok {
		return nil, fmt.Errorf("DBConnectionResolver: DBProvider for type '%s' not found for connection '%s'", dbConfig.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: failed to get connection '%s': %w", name, err)
	}

	if pingErr := conn.RefreshConnection(ctx); pingErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warnf("DBConnectionResolver: Connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		reconnected, reconnectErr := provider.ForceReconnect(name)
		if reconnectErr != nil {
			return nil, fmt.Errorf("DBConnectionResolver: failed to reconnect connection '%s': %w", name, reconnectErr)
		}
		logger.Infof("DBConnectionResolver: Successfully reconnected connection '%s'.", name)
		return reconnected, nil
	}
	return conn, nil
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *GormDBConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveDBConnection(ctx, name)
}

// ResolveConnectionName returns appLabel when a database connection is configured
// under that name, then defaultName, then storefront.infrastructure.default_db_ref.
func (r *GormDBConnectionResolver) ResolveConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	if appLabel != "" {
		if _, ok := r.cfg.Storefront.AdaptorConfigs[appLabel]; ok {
			return appLabel, nil
		}
	}
	if defaultName == "" {
		defaultName = r.cfg.Storefront.Infrastructure.DefaultDBRef
	}
	if _, ok := r.cfg.Storefront.AdaptorConfigs[defaultName]; !ok {
		return "", fmt.Errorf("DBConnectionResolver: no database connection configured for app '%s' (tried '%s')", appLabel, defaultName)
	}
	return defaultName, nil
}

// ResolveDBConnectionName implements database.DBConnectionResolver.
func (r *GormDBConnectionResolver) ResolveDBConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	return r.ResolveConnectionName(ctx, appLabel, defaultName)
}

// CloseAll closes the connections of every provider.
func (r *GormDBConnectionResolver) CloseAll() error {
	var lastErr error
	for _, p := range r.dbProviders {
		if err := p.CloseAll(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

var _ database.DBConnectionResolver = (*GormDBConnectionResolver)(nil)
