package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	metrics "github.com/tigerroll/storefront/pkg/web/core/metrics"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// OtelRecorder records metrics through an OpenTelemetry meter.
type OtelRecorder struct {
	requests          metric.Int64Counter
	requestDuration   metric.Float64Histogram
	appReadyDuration  metric.Float64Histogram
	operations        metric.Int64Counter
	exports           metric.Int64Counter
	exportRows        metric.Int64Counter
	exportBytes       metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewOtelRecorder creates the instruments on meter. Instruments that fail to
// be created are replaced by no-ops and logged.
func NewOtelRecorder(meter metric.Meter) *OtelRecorder {
	r := &OtelRecorder{}
	var err error
	warn := func(name string, err error) {
		if err != nil {
			logger.Warnf("Metrics: failed to create instrument '%s': %v", name, err)
		}
	}

	r.requests, err = meter.Int64Counter("storefront.http.requests", metric.WithDescription("HTTP requests served."))
	warn("storefront.http.requests", err)
	r.requestDuration, err = meter.Float64Histogram("storefront.http.request.duration", metric.WithUnit("s"))
	warn("storefront.http.request.duration", err)
	r.appReadyDuration, err = meter.Float64Histogram("storefront.app.ready.duration", metric.WithUnit("s"))
	warn("storefront.app.ready.duration", err)
	r.operations, err = meter.Int64Counter("storefront.app.operations")
	warn("storefront.app.operations", err)
	r.exports, err = meter.Int64Counter("storefront.exports")
	warn("storefront.exports", err)
	r.exportRows, err = meter.Int64Counter("storefront.export.rows")
	warn("storefront.export.rows", err)
	r.exportBytes, err = meter.Int64Counter("storefront.export.bytes", metric.WithUnit("By"))
	warn("storefront.export.bytes", err)
	r.operationDuration, err = meter.Float64Histogram("storefront.operation.duration", metric.WithUnit("s"))
	warn("storefront.operation.duration", err)
	return r
}

// RecordRequest implements metrics.MetricRecorder.
func (r *OtelRecorder) RecordRequest(ctx context.Context, method string, route string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	if r.requests != nil {
		r.requests.Add(ctx, 1, attrs)
	}
	if r.requestDuration != nil {
		r.requestDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordAppReady implements metrics.MetricRecorder.
func (r *OtelRecorder) RecordAppReady(ctx context.Context, label string, duration time.Duration, err error) {
	if r.appReadyDuration != nil {
		r.appReadyDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("app", label),
			attribute.String("status", statusOf(err)),
		))
	}
}

// RecordOperation implements metrics.MetricRecorder.
func (r *OtelRecorder) RecordOperation(ctx context.Context, app string, operation string, err error) {
	if r.operations != nil {
		r.operations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("app", app),
			attribute.String("operation", operation),
			attribute.String("status", statusOf(err)),
		))
	}
}

// RecordExport implements metrics.MetricRecorder.
func (r *OtelRecorder) RecordExport(ctx context.Context, app string, rows int, bytes int64, err error) {
	appAttr := metric.WithAttributes(attribute.String("app", app))
	if r.exports != nil {
		r.exports.Add(ctx, 1, metric.WithAttributes(attribute.String("app", app), attribute.String("status", statusOf(err))))
	}
	if r.exportRows != nil {
		r.exportRows.Add(ctx, int64(rows), appAttr)
	}
	if r.exportBytes != nil {
		r.exportBytes.Add(ctx, bytes, appAttr)
	}
}

// RecordDuration implements metrics.MetricRecorder. Tags become attributes.
func (r *OtelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	if r.operationDuration == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OtelRecorder)(nil)
