package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/storefront/pkg/web/adapter/storage"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/gcs"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/local"
	"github.com/tigerroll/storefront/pkg/web/core/config"
)

func newResolver(t *testing.T) (*storage.DefaultConnectionResolver, *config.Config) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Storefront.StorageConfigs = map[string]interface{}{
		"exports": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
		"catalog": map[string]interface{}{"type": "local", "base_dir": t.TempDir(), "bucket_name": "catalog"},
		"archive": map[string]interface{}{"type": "s3", "bucket_name": "archive"},
		"cloud":   map[string]interface{}{"type": "gcs"},
	}
	r := storage.NewDefaultConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg), gcs.NewGCSProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() { _ = r.CloseAll() })
	return r, cfg
}

func TestResolveStorageConnection(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	conn, err := r.ResolveStorageConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())

	again, err := r.ResolveStorageConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	generic, err := r.ResolveConnection(ctx, "catalog")
	require.NoError(t, err)
	assert.Equal(t, "catalog", generic.Name())
}

func TestResolveStorageConnection_Errors(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	_, err := r.ResolveStorageConnection(ctx, "missing")
	assert.ErrorContains(t, err, "not found in configuration")

	_, err = r.ResolveStorageConnection(ctx, "archive")
	assert.ErrorContains(t, err, "no storage provider found for type 's3'")

	_, err = r.ResolveStorageConnection(ctx, "cloud")
	assert.ErrorContains(t, err, "bucket_name must be specified")
}

func TestResolveStorageConnectionName(t *testing.T) {
	r, cfg := newResolver(t)
	ctx := context.Background()

	name, err := r.ResolveStorageConnectionName(ctx, "catalog", "")
	require.NoError(t, err)
	assert.Equal(t, "catalog", name)

	name, err = r.ResolveConnectionName(ctx, "product_management", "")
	require.NoError(t, err)
	assert.Equal(t, "exports", name)

	cfg.Storefront.Infrastructure.ExportStorageRef = "nowhere"
	_, err = r.ResolveStorageConnectionName(ctx, "product_management", "")
	assert.Error(t, err)
}

func TestBaseProvider_ForceReconnectAndTypeMismatch(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storefront.StorageConfigs = map[string]interface{}{
		"exports": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
		"cloud":   map[string]interface{}{"type": "gcs", "bucket_name": "b"},
	}
	p := local.NewLocalProvider(cfg)

	first, err := p.GetConnection("exports")
	require.NoError(t, err)
	second, err := p.ForceReconnect("exports")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	_, err = p.GetConnection("cloud")
	assert.ErrorContains(t, err, "type mismatch")

	assert.NoError(t, p.CloseAll())
}
