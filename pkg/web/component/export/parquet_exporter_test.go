package export_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/tigerroll/storefront/pkg/web/adapter/storage"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/local"
	"github.com/tigerroll/storefront/pkg/web/component/export"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
)

type row struct {
	SKU        string `parquet:"name=sku, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category   string `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	PriceCents int64  `parquet:"name=price_cents, type=INT64"`
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

func newLocalResolver(t *testing.T) storage.StorageConnectionResolver {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Storefront.StorageConfigs["exports"] = map[string]interface{}{"type": "local", "base_dir": t.TempDir()}
	r := storage.NewDefaultConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() { _ = r.CloseAll() })
	return r
}

func readRows(t *testing.T, resolver storage.StorageConnectionResolver, objectName string) []row {
	t.Helper()
	conn, err := resolver.ResolveStorageConnection(context.Background(), "exports")
	require.NoError(t, err)
	rc, err := conn.Download(context.Background(), "", objectName)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	pr, err := reader.NewParquetReader(newMemFile(data), new(row), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]row, int(pr.GetNumRows()))
	require.NoError(t, pr.Read(&rows))
	return rows
}

func TestNewParquetExporter_Validation(t *testing.T) {
	resolver := newLocalResolver(t)

	_, err := export.NewParquetExporter[row]("products", map[string]interface{}{"output_base_dir": "x"}, resolver, new(row), nil)
	assert.ErrorIs(t, err, exception.ErrInvalidArgument)

	_, err = export.NewParquetExporter[row]("products", map[string]interface{}{"storage_ref": "exports"}, resolver, new(row), nil)
	assert.ErrorIs(t, err, exception.ErrInvalidArgument)

	_, err = export.NewParquetExporter[row]("products", map[string]interface{}{
		"storage_ref": "exports", "output_base_dir": "x", "compression": "LZ4",
	}, resolver, new(row), nil)
	assert.ErrorContains(t, err, "unsupported compression type")

	e, err := export.NewParquetExporter[row]("products", map[string]interface{}{
		"storage_ref": "exports", "output_base_dir": "catalog",
	}, resolver, new(row), nil)
	require.NoError(t, err)
	assert.Equal(t, "SNAPPY", e.Config().CompressionType)
}

func TestParquetExporter_ExportPartitions(t *testing.T) {
	resolver := newLocalResolver(t)
	e, err := export.NewParquetExporter[row]("products", map[string]interface{}{
		"storage_ref":     "exports",
		"output_base_dir": "catalog/products",
		"compression":     "gzip",
	}, resolver, new(row), func(r row) (string, error) {
		return "category=" + r.Category, nil
	})
	require.NoError(t, err)

	result, err := e.Export(context.Background(), []row{
		{SKU: "A-1", Category: "tools", PriceCents: 100},
		{SKU: "B-1", Category: "garden", PriceCents: 250},
		{SKU: "A-2", Category: "tools", PriceCents: 300},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.Positive(t, result.Bytes)
	require.Len(t, result.Objects, 2)
	assert.True(t, strings.HasPrefix(result.Objects[0], "catalog/products/category=garden/data_"))
	assert.True(t, strings.HasPrefix(result.Objects[1], "catalog/products/category=tools/data_"))
	assert.True(t, strings.HasSuffix(result.Objects[1], ".parquet"))

	tools := readRows(t, resolver, result.Objects[1])
	require.Len(t, tools, 2)
	assert.Equal(t, "A-1", tools[0].SKU)
	assert.Equal(t, int64(300), tools[1].PriceCents)

	// The buffer was cleared.
	again, err := e.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Rows)
	assert.Empty(t, again.Objects)
}

func TestParquetExporter_PartitionKeyError(t *testing.T) {
	resolver := newLocalResolver(t)
	boom := errors.New("boom")
	e, err := export.NewParquetExporter[row]("products", map[string]interface{}{
		"storage_ref": "exports", "output_base_dir": "catalog",
	}, resolver, new(row), func(row) (string, error) { return "", boom })
	require.NoError(t, err)

	_, err = e.Export(context.Background(), []row{{SKU: "A-1"}})
	assert.ErrorIs(t, err, boom)
}

func TestParquetExporter_UnknownStorage(t *testing.T) {
	resolver := newLocalResolver(t)
	e, err := export.NewParquetExporter[row]("products", map[string]interface{}{
		"storage_ref": "archive", "output_base_dir": "catalog",
	}, resolver, new(row), nil)
	require.NoError(t, err)

	_, err = e.Export(context.Background(), []row{{SKU: "A-1"}})
	assert.ErrorIs(t, err, exception.ErrUnavailable)
}
