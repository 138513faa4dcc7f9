package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/core/metrics"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// TableName returns the migration history table of the app labelled label.
func TableName(prefix, label string) string {
	if prefix == "" {
		prefix = "schema_migrations"
	}
	return prefix + "_" + label
}

// Runner brings the schema of every installed app up to date.
type Runner struct {
	cfg              config.MigrationConfig
	registry         *apps.Registry
	dbResolver       database.DBConnectionResolver
	migratorProvider MigratorProvider
	recorder         metrics.MetricRecorder
	tracer           metrics.Tracer
}

// NewRunner creates a new Runner.
func NewRunner(
	cfg *config.Config,
	registry *apps.Registry,
	dbResolver database.DBConnectionResolver,
	migratorProvider MigratorProvider,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *Runner {
	return &Runner{
		cfg:              cfg.Storefront.Migration,
		registry:         registry,
		dbResolver:       dbResolver,
		migratorProvider: migratorProvider,
		recorder:         recorder,
		tracer:           tracer,
	}
}

// Run migrates every app in registration order and stops at the first failure.
// Apps implementing apps.MigrationsProvider get their SQL migrations applied.
// Apps that only implement apps.ModelsProvider are auto-migrated when
// auto_migrate is enabled.
func (r *Runner) Run(ctx context.Context) error {
	if !r.cfg.Enabled {
		logger.Infof("Schema migration is disabled.")
		return nil
	}
	if !r.registry.Ready() {
		return exception.NewAppError("migration", "app registry is not ready", exception.ErrUnavailable, apps.ErrAppRegistryNotReady)
	}

	for _, app := range r.registry.GetAppConfigs() {
		start := time.Now()
		applied, err := r.migrateApp(ctx, app)
		if applied {
			r.recorder.RecordOperation(ctx, app.Label(), "migrate", err)
			r.recorder.RecordDuration(ctx, "migration", time.Since(start), map[string]string{"app": app.Label()})
		}
		if err != nil {
			return exception.NewAppErrorf("migration", nil, "failed to migrate app '%s'", app.Label(), err)
		}
	}
	return nil
}

func (r *Runner) migrateApp(ctx context.Context, app apps.AppConfig) (bool, error) {
	mp, hasMigrations := app.(apps.MigrationsProvider)
	models, hasModels := app.(apps.ModelsProvider)
	if !hasMigrations && !(hasModels && r.cfg.AutoMigrate) {
		return false, nil
	}

	ctx, end := r.tracer.StartSpan(ctx, "migration.app", map[string]interface{}{"app": app.Label()})
	defer end()

	connName, err := r.dbResolver.ResolveDBConnectionName(ctx, app.Label(), "")
	if err != nil {
		return true, err
	}
	conn, err := r.dbResolver.ResolveDBConnection(ctx, connName)
	if err != nil {
		return true, err
	}

	if hasMigrations {
		fsys, dir := mp.Migrations()
		if fsys == nil {
			return true, fmt.Errorf("app '%s' returned no migrations filesystem", app.Label())
		}
		dir = DialectDir(fsys, dir, conn.Type())
		table := TableName(r.cfg.TablePrefix, app.Label())

		upErr := r.migratorProvider.NewMigrator(conn).Up(ctx, fsys, dir, table)
		// The migrator closed the pool; resolving again reconnects it.
		if _, err := r.dbResolver.ResolveDBConnection(ctx, connName); err != nil {
			upErr = errors.Join(upErr, fmt.Errorf("failed to reconnect '%s' after migration: %w", connName, err))
		}
		if upErr != nil {
			r.tracer.RecordError(ctx, "migration", upErr)
		}
		return true, upErr
	}

	sm, ok := conn.(database.SchemaMigrator)
	if !ok {
		return true, fmt.Errorf("connection '%s' does not support auto migration", connName)
	}
	logger.Infof("Auto-migrating %d model(s) of app '%s' on '%s'.", len(models.Models()), app.Label(), connName)
	if err := sm.AutoMigrate(ctx, models.Models()...); err != nil {
		r.tracer.RecordError(ctx, "migration", err)
		return true, err
	}
	return true, nil
}

// DialectDir returns dir/dbType when that directory exists in fsys, and dir otherwise.
func DialectDir(fsys fs.FS, dir string, dbType string) string {
	if dir == "" {
		dir = "."
	}
	candidate := path.Join(dir, dbType)
	if info, err := fs.Stat(fsys, candidate); err == nil && info.IsDir() {
		return candidate
	}
	return dir
}
