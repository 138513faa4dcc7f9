package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/storefront/example/storefront/internal/productmanagement"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/gcs"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/local"
	"github.com/tigerroll/storefront/pkg/web/component/migration"
	"github.com/tigerroll/storefront/pkg/web/contrib/health"
	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	inframetrics "github.com/tigerroll/storefront/pkg/web/infrastructure/metrics"
	"github.com/tigerroll/storefront/pkg/web/server"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// Options returns every fx option of the storefront service for cfg.
// dbProviderOptions contribute the DB providers selected by main.
func Options(appCtx context.Context, cfg *config.Config, dbProviderOptions []fx.Option) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		fx.Options(dbProviderOptions...),
		logger.Module,
		config.Module,
		inframetrics.Module,
		gormadapter.Module,
		storage.Module,
		local.Module,
		gcs.Module,
		apps.Module,
		migration.Module,
		server.Module,

		health.Module,
		productmanagement.Module,

		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner) {
			stopOnCancel(appCtx, lc, shutdowner)
		}),
	}
}

// RunApplication loads the configuration and runs the service until appCtx is
// cancelled or a start-up hook fails.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option) {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.SetLogLevel(cfg.Storefront.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Storefront.System.Logging.Level)
	logger.Infof("Installed apps: %v", cfg.Storefront.InstalledApps)

	app := fx.New(Options(appCtx, cfg, dbProviderOptions)...)
	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// stopOnCancel shuts the application down once appCtx is cancelled.
func stopOnCancel(appCtx context.Context, lc fx.Lifecycle, shutdowner fx.Shutdowner) {
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				select {
				case <-appCtx.Done():
					logger.Infof("Application context cancelled. Requesting shutdown.")
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				case <-done:
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}
