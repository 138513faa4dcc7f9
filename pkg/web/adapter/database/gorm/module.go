package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	coreAdapter "github.com/tigerroll/storefront/pkg/web/core/adapter"
)

// registerResolverLifecycle closes every pooled connection when the application stops.
func registerResolverLifecycle(lc fx.Lifecycle, r *GormDBConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
}

// Module exports the components of the gorm adapter package (excluding concrete DB providers).
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Provide(func(r *GormDBConnectionResolver) coreAdapter.ResourceConnectionResolver { return r }),
	fx.Provide(NewGormTransactionManagerFactory),
	fx.Invoke(registerResolverLifecycle),
)
