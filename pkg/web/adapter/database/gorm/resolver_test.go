package gorm_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	"github.com/tigerroll/storefront/pkg/web/adapter/database/gorm/sqlite"
	"github.com/tigerroll/storefront/pkg/web/core/config"
)

func newResolver(t *testing.T, connections map[string]interface{}) *gormadapter.GormDBConnectionResolver {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Storefront.AdaptorConfigs = connections
	r := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = r.CloseAll() })
	return r
}

func sqliteEntry(t *testing.T, name string) map[string]interface{} {
	return map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), name+".db"),
	}
}

func TestResolveConnectionName(t *testing.T) {
	r := newResolver(t, map[string]interface{}{
		"default": sqliteEntry(t, "default"),
		"catalog": sqliteEntry(t, "catalog"),
	})
	ctx := context.Background()

	tests := []struct {
		name        string
		appLabel    string
		defaultName string
		want        string
		wantErr     bool
	}{
		{name: "app label configured", appLabel: "catalog", want: "catalog"},
		{name: "explicit default", appLabel: "health", defaultName: "catalog", want: "catalog"},
		{name: "falls back to default_db_ref", appLabel: "health", want: "default"},
		{name: "unknown default", appLabel: "health", defaultName: "missing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveDBConnectionName(ctx, tt.appLabel, tt.defaultName)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDBConnection_ReusesPooledConnection(t *testing.T) {
	r := newResolver(t, map[string]interface{}{"default": sqliteEntry(t, "default")})
	ctx := context.Background()

	first, err := r.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	second, err := r.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "default", first.Name())
	assert.Equal(t, "sqlite", first.Type())

	generic, err := r.ResolveConnection(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "default", generic.Name())
}

func TestResolveDBConnection_ReconnectsClosedPool(t *testing.T) {
	r := newResolver(t, map[string]interface{}{"default": sqliteEntry(t, "default")})
	ctx := context.Background()

	first, err := r.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := r.ResolveDBConnection(ctx, "default")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.NoError(t, second.RefreshConnection(ctx))
}

func TestResolveDBConnection_Errors(t *testing.T) {
	r := newResolver(t, map[string]interface{}{
		"warehouse": map[string]interface{}{"type": "oracle", "host": "db"},
	})
	ctx := context.Background()

	_, err := r.ResolveDBConnection(ctx, "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = r.ResolveDBConnection(ctx, "warehouse")
	assert.ErrorContains(t, err, "DBProvider for type 'oracle' not found")
}

func TestResolveDBConnection_InMemory(t *testing.T) {
	r := newResolver(t, map[string]interface{}{
		"memory": map[string]interface{}{"type": "sqlite", "database": ":memory:"},
	})
	conn, err := r.ResolveDBConnection(context.Background(), "memory")
	require.NoError(t, err)

	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
