package productmanagement_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/tigerroll/storefront/example/storefront/internal/productmanagement"
	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	"github.com/tigerroll/storefront/pkg/web/adapter/database/gorm/sqlite"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/local"
	"github.com/tigerroll/storefront/pkg/web/component/migration"
	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/core/metrics"
)

// opLog records RecordOperation calls.
type opLog struct {
	metrics.NoOpMetricRecorder
	mu      sync.Mutex
	ops     []string
	exports int
}

func (l *opLog) RecordOperation(ctx context.Context, app, operation string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "error"
	}
	l.ops = append(l.ops, app+" "+operation+" "+status)
}

func (l *opLog) RecordExport(ctx context.Context, app string, rows int, bytes int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exports++
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

// catalog is a migrated SQLite database with a Service on top.
type catalog struct {
	cfg      *config.Config
	resolver database.DBConnectionResolver
	storage  storage.StorageConnectionResolver
	registry *apps.Registry
	repo     *productmanagement.Repository
	service  *productmanagement.Service
	ops      *opLog
}

func newCatalog(t *testing.T) *catalog {
	t.Helper()
	ctx := context.Background()

	cfg := config.NewConfig()
	cfg.Storefront.AdaptorConfigs["default"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "storefront.db"),
	}
	cfg.Storefront.StorageConfigs["exports"] = map[string]interface{}{"type": "local", "base_dir": t.TempDir()}
	cfg.Storefront.Migration.Enabled = true

	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })
	storageResolver := storage.NewDefaultConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() { _ = storageResolver.CloseAll() })

	reg := apps.NewRegistry()
	require.NoError(t, reg.Populate(ctx, []apps.AppConfig{productmanagement.NewProductManagementConfig(resolver)}))
	runner := migration.NewRunner(cfg, reg, resolver, migration.NewMigratorProvider(), metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer())
	require.NoError(t, runner.Run(ctx))

	repo, err := productmanagement.NewRepositoryProvider(resolver)
	require.NoError(t, err)
	ops := &opLog{}
	service := productmanagement.NewService(repo, gormadapter.NewGormTransactionManager(resolver, repo.DBName()), storageResolver, ops, metrics.NewNoOpTracer())

	return &catalog{
		cfg:      cfg,
		resolver: resolver,
		storage:  storageResolver,
		registry: reg,
		repo:     repo,
		service:  service,
		ops:      ops,
	}
}

func (c *catalog) mustCategory(t *testing.T, slug, name string) *productmanagement.Category {
	t.Helper()
	category, err := c.service.CreateCategory(context.Background(), productmanagement.CategoryInput{Slug: slug, Name: name})
	require.NoError(t, err)
	return category
}

func (c *catalog) mustProduct(t *testing.T, in productmanagement.ProductInput) *productmanagement.Product {
	t.Helper()
	if in.Name == "" {
		in.Name = "Product " + in.SKU
	}
	if in.Currency == "" {
		in.Currency = "EUR"
	}
	product, err := c.service.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	return product
}

// memFile is a read-only source.ParquetFile over a byte slice.
type memFile struct {
	*bytes.Reader
	data []byte
}

func newMemFile(data []byte) *memFile {
	return &memFile{Reader: bytes.NewReader(data), data: data}
}

func (f *memFile) Open(string) (source.ParquetFile, error)   { return newMemFile(f.data), nil }
func (f *memFile) Create(string) (source.ParquetFile, error) { return nil, errors.New("read-only") }
func (f *memFile) Write([]byte) (int, error)                 { return 0, errors.New("read-only") }
func (f *memFile) Close() error                               { return nil }

func (c *catalog) readExport(t *testing.T, objectName string) []productmanagement.CatalogRow {
	t.Helper()
	conn, err := c.storage.ResolveStorageConnection(context.Background(), "exports")
	require.NoError(t, err)
	rc, err := conn.Download(context.Background(), "", objectName)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	pr, err := reader.NewParquetReader(newMemFile(data), new(productmanagement.CatalogRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]productmanagement.CatalogRow, int(pr.GetNumRows()))
	require.NoError(t, pr.Read(&rows))
	return rows
}
