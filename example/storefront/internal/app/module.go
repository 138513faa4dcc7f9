// Package app assembles the storefront service from the framework modules and
// the installed apps.
package app

import (
	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	"github.com/tigerroll/storefront/pkg/web/adapter/database/gorm/mysql"
	"github.com/tigerroll/storefront/pkg/web/adapter/database/gorm/postgres"
	"github.com/tigerroll/storefront/pkg/web/adapter/database/gorm/sqlite"
	"github.com/tigerroll/storefront/pkg/web/core/config"
)

// DBProviderMap is used by main.go to select providers by name.
var DBProviderMap = map[string]func(cfg *config.Config) database.DBProvider{
	"postgres": postgres.NewProvider,
	"mysql":    mysql.NewProvider,
	"sqlite":   sqlite.NewProvider,
}
