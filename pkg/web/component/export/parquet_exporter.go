// Package export writes application data as parquet files into object storage.
package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/storefront/pkg/web/adapter/storage"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// Config holds the configuration of a ParquetExporter.
type Config struct {
	// StorageRef is the name of the storage connection to upload into.
	StorageRef string `mapstructure:"storage_ref"`
	// OutputBaseDir is the object name prefix of exported files, e.g. "catalog/products".
	OutputBaseDir string `mapstructure:"output_base_dir"`
	// CompressionType is "SNAPPY" (default), "GZIP" or "NONE".
	CompressionType string `mapstructure:"compression"`
}

// Result describes one flush.
type Result struct {
	// Objects are the uploaded object names in partition order.
	Objects []string
	Rows    int
	Bytes   int64
}

// ParquetExporter buffers rows by partition key and writes one parquet file per
// partition when flushed. T must carry parquet struct tags.
type ParquetExporter[T any] struct {
	name             string
	config           Config
	resolver         storage.StorageConnectionResolver
	prototype        *T
	partitionKeyFunc func(T) (string, error)
	now              func() time.Time

	mu       sync.Mutex
	buffered map[string][]T
	count    int
}

// NewParquetExporter creates a ParquetExporter from properties, decoded into Config.
// A nil partitionKeyFunc puts every row into one partition at OutputBaseDir.
func NewParquetExporter[T any](
	name string,
	properties map[string]interface{},
	resolver storage.StorageConnectionResolver,
	prototype *T,
	partitionKeyFunc func(T) (string, error),
) (*ParquetExporter[T], error) {
	var config Config
	if err := mapstructure.Decode(properties, &config); err != nil {
		return nil, exception.NewAppErrorf("export", exception.ErrInvalidArgument, "failed to decode properties of exporter '%s'", name, err)
	}
	if config.StorageRef == "" {
		return nil, exception.NewAppErrorf("export", exception.ErrInvalidArgument, "exporter '%s' requires 'storage_ref'", name)
	}
	if config.OutputBaseDir == "" {
		return nil, exception.NewAppErrorf("export", exception.ErrInvalidArgument, "exporter '%s' requires 'output_base_dir'", name)
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := compressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewAppErrorf("export", exception.ErrInvalidArgument, "exporter '%s'", name, err)
	}
	if partitionKeyFunc == nil {
		partitionKeyFunc = func(T) (string, error) { return "", nil }
	}

	return &ParquetExporter[T]{
		name:             name,
		config:           config,
		resolver:         resolver,
		prototype:        prototype,
		partitionKeyFunc: partitionKeyFunc,
		now:              time.Now,
		buffered:         make(map[string][]T),
	}, nil
}

// Config returns the decoded configuration.
func (e *ParquetExporter[T]) Config() Config {
	return e.config
}

// Write buffers items under their partition keys. Nothing is uploaded until Flush.
func (e *ParquetExporter[T]) Write(ctx context.Context, items []T) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, item := range items {
		key, err := e.partitionKeyFunc(item)
		if err != nil {
			return exception.NewAppErrorf("export", exception.ErrInvalidArgument, "failed to get partition key in exporter '%s'", e.name, err)
		}
		e.buffered[key] = append(e.buffered[key], item)
		e.count++
	}
	logger.Debugf("Exporter '%s' buffered %d items. Total buffered: %d.", e.name, len(items), e.count)
	return nil
}

// Flush writes every buffered partition and uploads it. A failing partition
// does not stop the others; all failures are returned together. The buffer is
// cleared either way.
func (e *ParquetExporter[T]) Flush(ctx context.Context) (Result, error) {
	e.mu.Lock()
	buffered, count := e.buffered, e.count
	e.buffered, e.count = make(map[string][]T), 0
	e.mu.Unlock()

	var result Result
	if count == 0 {
		logger.Infof("Exporter '%s': nothing buffered, skipping parquet generation.", e.name)
		return result, nil
	}

	codec, _ := compressionCodec(e.config.CompressionType)
	conn, err := e.resolver.ResolveStorageConnection(ctx, e.config.StorageRef)
	if err != nil {
		return result, exception.NewAppErrorf("export", exception.ErrUnavailable, "failed to resolve storage connection '%s'", e.config.StorageRef, err)
	}

	keys := make([]string, 0, len(buffered))
	for key := range buffered {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs *multierror.Error
	for _, key := range keys {
		items := buffered[key]
		buf, err := e.encode(items, codec)
		if err != nil {
			errs = multierror.Append(errs, exception.NewAppErrorf("export", nil, "failed to encode partition '%s'", key, err))
			continue
		}

		objectName := path.Join(e.config.OutputBaseDir, key,
			fmt.Sprintf("data_%s_%s.parquet", e.now().UTC().Format("20060102150405"), uuid.NewString()[:8]))
		size := int64(buf.Len())
		if err := conn.Upload(ctx, "", objectName, buf, "application/vnd.apache.parquet"); err != nil {
			errs = multierror.Append(errs, exception.NewAppErrorf("export", exception.ErrUnavailable, "failed to upload partition '%s' to '%s'", key, objectName, err))
			continue
		}
		logger.Infof("Exporter '%s': uploaded %d rows of partition '%s' to %s", e.name, len(items), key, objectName)
		result.Objects = append(result.Objects, objectName)
		result.Rows += len(items)
		result.Bytes += size
	}
	return result, errs.ErrorOrNil()
}

// Export writes items and flushes them.
func (e *ParquetExporter[T]) Export(ctx context.Context, items []T) (Result, error) {
	if err := e.Write(ctx, items); err != nil {
		return Result{}, err
	}
	return e.Flush(ctx)
}

// encode writes items into one in-memory parquet file with a single row group.
func (e *ParquetExporter[T]) encode(items []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, e.prototype, 1)
	if err != nil {
		return nil, err
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = codec

	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return nil, err
		}
	}

	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return buf, nil
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
