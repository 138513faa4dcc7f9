package apps

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

const (
	// AppConfigGroup is the Fx group every application config is provided into.
	AppConfigGroup = `group:"app_configs"`
	// HookObserverGroup is the Fx group of HookObservers attached to the registry.
	HookObserverGroup = `group:"app_hook_observers"`
)

// AsAppConfig annotates constructor so that its result joins AppConfigGroup.
// The registry keeps the concrete value the constructor returns.
func AsAppConfig(constructor interface{}) fx.Option {
	return fx.Provide(fx.Annotate(
		constructor,
		fx.As(new(AppConfig)),
		fx.ResultTags(AppConfigGroup),
	))
}

// RegistryParams defines the dependencies of NewRegistryProvider.
type RegistryParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Configs   []AppConfig    `group:"app_configs"`
	Observers []HookObserver `group:"app_hook_observers"`
}

// NewRegistryProvider builds the Registry from every config in AppConfigGroup,
// ordered by storefront.installed_apps, and populates it when the application starts.
func NewRegistryProvider(p RegistryParams) (*Registry, error) {
	ordered, err := OrderByInstalledApps(p.Config.Storefront.InstalledApps, p.Configs)
	if err != nil {
		return nil, exception.NewAppError("apps", "failed to resolve installed apps", exception.ErrInvalidArgument, err)
	}

	opts := make([]Option, 0, len(p.Observers))
	for _, o := range p.Observers {
		if o != nil {
			opts = append(opts, WithHookObserver(o))
		}
	}
	reg := NewRegistry(opts...)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := reg.Populate(ctx, ordered); err != nil {
				logger.Errorf("App registry population failed: %v", err)
				return err
			}
			return nil
		},
	})
	return reg, nil
}

// Module provides the application Registry.
var Module = fx.Options(
	fx.Provide(NewRegistryProvider),
)
