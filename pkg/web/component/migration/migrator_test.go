package migration_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	"github.com/tigerroll/storefront/pkg/web/adapter/database/gorm/sqlite"
	"github.com/tigerroll/storefront/pkg/web/component/migration"
	"github.com/tigerroll/storefront/pkg/web/core/config"
)

var catalogMigrations = fstest.MapFS{
	"migrations/sqlite/000001_create_items.up.sql":   {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY, name TEXT NOT NULL);")},
	"migrations/sqlite/000001_create_items.down.sql": {Data: []byte("DROP TABLE items;")},
	"migrations/sqlite/000002_add_price.up.sql":      {Data: []byte("ALTER TABLE items ADD COLUMN price_cents INTEGER NOT NULL DEFAULT 0;")},
	"migrations/sqlite/000002_add_price.down.sql":    {Data: []byte("ALTER TABLE items DROP COLUMN price_cents;")},
}

func newSQLiteResolver(t *testing.T, names ...string) (*gormadapter.GormDBConnectionResolver, *config.Config) {
	t.Helper()
	cfg := config.NewConfig()
	for _, name := range names {
		cfg.Storefront.AdaptorConfigs[name] = map[string]interface{}{
			"type":     "sqlite",
			"database": filepath.Join(t.TempDir(), name+".db"),
		}
	}
	r := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = r.CloseAll() })
	return r, cfg
}

func TestMigrator_UpVersionDown(t *testing.T) {
	ctx := context.Background()
	resolver, _ := newSQLiteResolver(t, "default")
	table := migration.TableName("schema_migrations", "catalog")

	conn, err := resolver.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	_, _, ok, err := migration.NewMigrator(conn).Version(ctx, catalogMigrations, "migrations/sqlite", table)
	require.NoError(t, err)
	assert.False(t, ok)

	conn, err = resolver.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	require.NoError(t, migration.NewMigrator(conn).Up(ctx, catalogMigrations, "migrations/sqlite", table))

	conn, err = resolver.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	version, dirty, ok, err := migration.NewMigrator(conn).Version(ctx, catalogMigrations, "migrations/sqlite", table)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.EqualValues(t, 2, version)

	conn, err = resolver.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	count, err := conn.Count(ctx, &item{}, nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	// A second Up is a no-op.
	require.NoError(t, migration.NewMigrator(conn).Up(ctx, catalogMigrations, "migrations/sqlite", table))

	conn, err = resolver.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	require.NoError(t, migration.NewMigrator(conn).Down(ctx, catalogMigrations, "migrations/sqlite", table))

	conn, err = resolver.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	_, err = conn.Count(ctx, &item{}, nil)
	require.Error(t, err)
	assert.True(t, conn.IsTableNotExistError(err))
}

func TestMigrator_UnknownDirectory(t *testing.T) {
	ctx := context.Background()
	resolver, _ := newSQLiteResolver(t, "default")
	conn, err := resolver.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)

	err = migration.NewMigrator(conn).Up(ctx, catalogMigrations, "migrations/oracle", "schema_migrations_catalog")
	assert.Error(t, err)
}

func TestDialectDir(t *testing.T) {
	assert.Equal(t, "migrations/sqlite", migration.DialectDir(catalogMigrations, "migrations", "sqlite"))
	assert.Equal(t, "migrations", migration.DialectDir(catalogMigrations, "migrations", "mysql"))
	assert.Equal(t, ".", migration.DialectDir(fstest.MapFS{"1_a.up.sql": {Data: []byte("")}}, "", "sqlite"))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "schema_migrations_product_management", migration.TableName("schema_migrations", "product_management"))
	assert.Equal(t, "schema_migrations_health", migration.TableName("", "health"))
}

type item struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	PriceCents int64
}

func (item) TableName() string { return "items" }
