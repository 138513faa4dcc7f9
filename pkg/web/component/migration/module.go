package migration

import (
	"context"

	"go.uber.org/fx"
)

// registerRunner runs the migrations on start. Registry population is
// appended to the lifecycle first because the Runner depends on the Registry.
func registerRunner(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return r.Run(ctx)
		},
	})
}

// Module provides the migration Runner and applies migrations on start.
var Module = fx.Options(
	fx.Provide(NewMigratorProvider),
	fx.Provide(NewRunner),
	fx.Invoke(registerRunner),
)
