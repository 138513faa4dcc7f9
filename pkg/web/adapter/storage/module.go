package storage

import (
	"context"

	"go.uber.org/fx"
)

func registerResolverLifecycle(lc fx.Lifecycle, r *DefaultConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
}

// Module provides the StorageConnectionResolver. Concrete providers come from
// the local and gcs packages.
var Module = fx.Options(
	fx.Provide(NewDefaultConnectionResolver),
	fx.Provide(func(r *DefaultConnectionResolver) StorageConnectionResolver { return r }),
	fx.Invoke(registerResolverLifecycle),
)
