package productmanagement

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage"
	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/metrics"
	"github.com/tigerroll/storefront/pkg/web/core/tx"
	"github.com/tigerroll/storefront/pkg/web/server"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
)

// NewRepositoryProvider binds the Repository to the connection configured for this app.
func NewRepositoryProvider(dbResolver database.DBConnectionResolver) (*Repository, error) {
	dbName, err := dbResolver.ResolveDBConnectionName(context.Background(), Name, "")
	if err != nil {
		return nil, exception.NewAppErrorf("productmanagement", exception.ErrInvalidArgument, "no database connection for app '%s'", Name, err)
	}
	return NewRepository(dbResolver, dbName), nil
}

// ServiceParams defines the dependencies of NewServiceProvider.
type ServiceParams struct {
	fx.In
	Repository      *Repository
	DBResolver      database.DBConnectionResolver
	StorageResolver storage.StorageConnectionResolver `optional:"true"`
	Recorder        metrics.MetricRecorder            `optional:"true"`
	Tracer          metrics.Tracer                    `optional:"true"`
}

// NewServiceProvider creates the Service with a transaction manager on the repository's connection.
func NewServiceProvider(p ServiceParams) *Service {
	var txManager tx.TransactionManager = gormadapter.NewGormTransactionManager(p.DBResolver, p.Repository.DBName())
	return NewService(p.Repository, txManager, p.StorageResolver, p.Recorder, p.Tracer)
}

// Module installs the product management app, its services and routes.
var Module = fx.Options(
	apps.AsAppConfig(NewProductManagementConfig),
	fx.Provide(NewRepositoryProvider),
	fx.Provide(NewServiceProvider),
	fx.Provide(NewHandlers),
	server.AsAppRoutes(NewRoutes),
)
