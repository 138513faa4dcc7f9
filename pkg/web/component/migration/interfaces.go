// Package migration applies the schema migrations of installed applications.
package migration

import (
	"context"
	"io/fs"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
)

// Migrator handles database schema migrations for one connection.
//
// golang-migrate closes the *sql.DB it was given when it finishes, so every
// call leaves the connection's pool closed. Callers re-resolve the connection
// through a database.DBConnectionResolver afterwards.
type Migrator interface {
	// Up applies all pending migrations found under dir in migrationFS.
	// tableName is the table tracking migration history.
	Up(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error
	// Down rolls back all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error
	// Version returns the applied version. ok is false when nothing was applied yet.
	Version(ctx context.Context, migrationFS fs.FS, dir string, tableName string) (version uint, dirty bool, ok bool, err error)
}

// MigratorProvider creates Migrator instances for connections.
type MigratorProvider interface {
	NewMigrator(dbConn database.DBConnection) Migrator
}
