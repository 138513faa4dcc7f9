package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

type migratorImpl struct {
	dbConn database.DBConnection
	dbType string
}

// NewMigrator creates a new Migrator for dbConn.
func NewMigrator(dbConn database.DBConnection) Migrator {
	return &migratorImpl{
		dbConn: dbConn,
		dbType: dbConn.Type(),
	}
}

func (m *migratorImpl) databaseDriver(sqlDB *sql.DB, tableName string) (migratedb.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *migratorImpl) open(migrationFS fs.FS, dir string, tableName string) (*migrate.Migrate, error) {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", dir, err)
	}
	dbDriver, err := m.databaseDriver(sqlDB, tableName)
	if err != nil {
		_ = sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	instance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		_ = sourceDriver.Close()
		_ = dbDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	instance.Log = migrateLogger{}
	return instance, nil
}

// run executes step with instance and stops it gracefully when ctx is cancelled.
func (m *migratorImpl) run(ctx context.Context, migrationFS fs.FS, dir, tableName, command string, step func(*migrate.Migrate) error) error {
	logger.Infof("Executing migration '%s' on '%s' (Path: %s, Table: %s)", command, m.dbConn.Name(), dir, tableName)

	instance, err := m.open(migrationFS, dir, tableName)
	if err != nil {
		return err
	}
	defer instance.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			instance.GracefulStop <- true
		case <-done:
		}
	}()

	if err := step(instance); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("migration '%s' failed (DB: %s, Path: %s): %w", command, m.dbType, dir, err)
	}
	logger.Infof("Migration '%s' on '%s' completed.", command, m.dbConn.Name())
	return nil
}

func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error {
	return m.run(ctx, migrationFS, dir, tableName, "up", (*migrate.Migrate).Up)
}

func (m *migratorImpl) Down(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error {
	return m.run(ctx, migrationFS, dir, tableName, "down", (*migrate.Migrate).Down)
}

func (m *migratorImpl) Version(ctx context.Context, migrationFS fs.FS, dir string, tableName string) (uint, bool, bool, error) {
	instance, err := m.open(migrationFS, dir, tableName)
	if err != nil {
		return 0, false, false, err
	}
	defer instance.Close()

	version, dirty, err := instance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to read migration version from '%s': %w", tableName, err)
	}
	return version, dirty, true, nil
}

// migrateLogger forwards golang-migrate's log output to the framework logger.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logger.Debugf(strings.TrimRight(format, "\n"), v...)
}

func (migrateLogger) Verbose() bool {
	return false
}

type migratorProviderImpl struct{}

// NewMigratorProvider creates the default MigratorProvider.
func NewMigratorProvider() MigratorProvider {
	return &migratorProviderImpl{}
}

func (p *migratorProviderImpl) NewMigrator(dbConn database.DBConnection) Migrator {
	return NewMigrator(dbConn)
}
