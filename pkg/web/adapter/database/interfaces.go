package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/storefront/pkg/web/adapter/database/config"
	coreAdapter "github.com/tigerroll/storefront/pkg/web/core/adapter"
	"github.com/tigerroll/storefront/pkg/web/core/tx"
)

// DBExecutor defines the read and write operations available on a database connection.
type DBExecutor interface {
	tx.TxExecutor // ExecuteUpdate, ExecuteUpsert, IsTableNotExistError

	// ExecuteQuery executes a SELECT with column=value conditions from query.
	// target is a pointer to a slice of models. An empty result is not an error.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced executes a SELECT with optional ordering and paging.
	// limit and offset are ignored when zero.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int, offset int) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)

	// Pluck retrieves the distinct values of column for records matching the query.
	Pluck(ctx context.Context, model interface{}, column string, target interface{}, query map[string]interface{}) error
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Type(), Name(), Close()
	DBExecutor

	// RefreshConnection pings the database, re-validating the pool.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// SchemaMigrator is implemented by connections that can create tables from models.
type SchemaMigrator interface {
	AutoMigrate(ctx context.Context, models ...interface{}) error
}

// DBConnectionResolver resolves database connections by name.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection resolves a database connection instance by name,
	// re-establishing it if its pool no longer answers.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)

	// ResolveDBConnectionName picks the connection name for an application.
	ResolveDBConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error)
}

// DBProvider is responsible for providing database connections of one type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "sqlite").
	Type() string
	// ForceReconnect closes and re-establishes the named connection.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx group every DBProvider implementation is provided into.
const DBProviderGroup = "db_providers"
