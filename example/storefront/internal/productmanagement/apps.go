// Package productmanagement is the storefront's product catalog app.
// It owns categories, products and their stock movements, and serves them
// under /product_management.
package productmanagement

import (
	"context"
	"embed"
	"io/fs"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// Name is the app name and label.
const Name = "product_management"

//go:embed migrations
var migrationsFS embed.FS

// ProductManagementConfig is the AppConfig of the product catalog.
type ProductManagementConfig struct {
	apps.BaseAppConfig
	dbResolver database.DBConnectionResolver
}

// NewProductManagementConfig returns the app config. A nil resolver skips the
// database check in Ready.
func NewProductManagementConfig(dbResolver database.DBConnectionResolver) *ProductManagementConfig {
	return &ProductManagementConfig{
		BaseAppConfig: apps.BaseAppConfig{
			AppName:        Name,
			AppVerboseName: "Product Management",
			AppPath:        "example/storefront/internal/productmanagement",
		},
		dbResolver: dbResolver,
	}
}

// Ready verifies that the app's database connection resolves.
func (c *ProductManagementConfig) Ready(ctx context.Context) error {
	if c.dbResolver == nil {
		logger.Infof("App '%s' is ready (no database configured).", c.Label())
		return nil
	}
	dbName, err := c.dbResolver.ResolveDBConnectionName(ctx, c.Label(), "")
	if err != nil {
		return exception.NewAppErrorf("productmanagement", exception.ErrUnavailable, "no database connection for app '%s'", c.Label(), err)
	}
	if _, err := c.dbResolver.ResolveDBConnection(ctx, dbName); err != nil {
		return exception.NewAppErrorf("productmanagement", exception.ErrUnavailable, "database connection '%s' is not available", dbName, err)
	}
	logger.Infof("App '%s' is ready on database connection '%s'.", c.Label(), dbName)
	return nil
}

// Models implements apps.ModelsProvider.
func (c *ProductManagementConfig) Models() []interface{} {
	return []interface{}{&Category{}, &Product{}, &StockMovement{}}
}

// Migrations implements apps.MigrationsProvider.
func (c *ProductManagementConfig) Migrations() (fs.FS, string) {
	return migrationsFS, "migrations"
}

var (
	_ apps.AppConfig          = (*ProductManagementConfig)(nil)
	_ apps.ReadyHook          = (*ProductManagementConfig)(nil)
	_ apps.ModelsProvider     = (*ProductManagementConfig)(nil)
	_ apps.MigrationsProvider = (*ProductManagementConfig)(nil)
)
