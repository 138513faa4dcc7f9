package local_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/storefront/pkg/web/adapter/storage/config"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/local"
)

func TestNewLocalAdapter_Validation(t *testing.T) {
	_, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local"}, "exports")
	assert.ErrorContains(t, err, "base_dir must be specified")

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: file}, "exports")
	assert.ErrorContains(t, err, "is not a directory")

	created := filepath.Join(t.TempDir(), "nested", "dir")
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: created}, "exports")
	require.NoError(t, err)
	assert.DirExists(t, created)
	assert.Equal(t, "local", conn.Type())
	assert.Equal(t, "exports", conn.Name())
}

func TestLocalAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: baseDir, BucketName: "catalog"}, "exports")
	require.NoError(t, err)

	require.NoError(t, conn.Upload(ctx, "", "2026/products.parquet", strings.NewReader("rows"), "application/octet-stream"))
	require.NoError(t, conn.Upload(ctx, "", "2026/categories.parquet", strings.NewReader("cats"), ""))
	require.NoError(t, conn.Upload(ctx, "", "readme.txt", strings.NewReader("hi"), "text/plain"))
	assert.FileExists(t, filepath.Join(baseDir, "catalog", "2026", "products.parquet"))

	r, err := conn.Download(ctx, "", "2026/products.parquet")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "rows", string(body))

	var listed []string
	require.NoError(t, conn.ListObjects(ctx, "", "2026/", func(name string) error {
		listed = append(listed, name)
		return nil
	}))
	assert.Equal(t, []string{"2026/categories.parquet", "2026/products.parquet"}, listed)

	require.NoError(t, conn.DeleteObject(ctx, "", "2026/products.parquet"))
	assert.NoFileExists(t, filepath.Join(baseDir, "catalog", "2026", "products.parquet"))
	assert.NoError(t, conn.DeleteObject(ctx, "", "2026/products.parquet"))

	_, err = conn.Download(ctx, "", "2026/products.parquet")
	assert.Error(t, err)
}

func TestLocalAdapter_ListStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "exports")
	require.NoError(t, err)
	require.NoError(t, conn.Upload(ctx, "b", "a.txt", strings.NewReader("a"), ""))
	require.NoError(t, conn.Upload(ctx, "b", "b.txt", strings.NewReader("b"), ""))

	stop := errors.New("stop")
	calls := 0
	err = conn.ListObjects(ctx, "b", "", func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	calls = 0
	require.NoError(t, conn.ListObjects(ctx, "missing-bucket", "", func(string) error {
		calls++
		return nil
	}))
	assert.Zero(t, calls)
}

func TestLocalAdapter_RejectsPathEscape(t *testing.T) {
	ctx := context.Background()
	baseDir := filepath.Join(t.TempDir(), "root")
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: baseDir}, "exports")
	require.NoError(t, err)

	err = conn.Upload(ctx, "", "../escaped.txt", strings.NewReader("x"), "")
	assert.ErrorContains(t, err, "outside of base_dir")

	err = conn.Upload(ctx, "..", "root-sibling/escaped.txt", strings.NewReader("x"), "")
	assert.ErrorContains(t, err, "outside of base_dir")
}
