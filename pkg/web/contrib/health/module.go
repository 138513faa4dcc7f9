package health

import (
	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/server"
)

// Module installs the health app and its routes.
var Module = fx.Options(
	apps.AsAppConfig(NewHealthConfig),
	fx.Provide(NewChecker),
	server.AsAppRoutes(NewRoutes),
)
