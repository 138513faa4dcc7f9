package metrics

import (
	"context"
	"time"
)

// MetricRecorder is an abstract interface for recording metrics of the web framework
// and its applications. Backends (Prometheus, OpenTelemetry) implement it in the
// infrastructure layer.
type MetricRecorder interface {
	// RecordRequest records one served HTTP request.
	//
	// route is the matched route pattern (e.g. "/product_management/products/{id}"),
	// not the raw path, so label cardinality stays bounded.
	RecordRequest(ctx context.Context, method string, route string, status int, duration time.Duration)

	// RecordAppReady records the outcome of an application's ready hook.
	RecordAppReady(ctx context.Context, label string, duration time.Duration, err error)

	// RecordOperation records one application-level operation (e.g. "create_product")
	// and whether it failed.
	RecordOperation(ctx context.Context, app string, operation string, err error)

	// RecordExport records an export run with the number of rows and bytes written.
	RecordExport(ctx context.Context, app string, rows int, bytes int64, err error)

	// RecordDuration records the execution time of a named operation.
	//
	// tags are additional attributes, e.g. {"table": "products", "status": "success"}.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
