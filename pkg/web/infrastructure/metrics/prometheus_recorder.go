// Package metrics provides the Prometheus and OpenTelemetry implementations of
// the core metrics interfaces.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	metrics "github.com/tigerroll/storefront/pkg/web/core/metrics"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

const namespace = "storefront"

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// It owns its registry, which the HTTP server exposes on /metrics.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// HTTP
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Apps
	appReadyDuration *prometheus.HistogramVec
	operationsTotal  *prometheus.CounterVec

	// Exports
	exportsTotal     *prometheus.CounterVec
	exportRowsTotal  *prometheus.CounterVec
	exportBytesTotal *prometheus.CounterVec

	operationDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new PrometheusRecorder with Go runtime and
// process collectors registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		appReadyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "app_ready_duration_seconds",
			Help:      "Duration of application ready hooks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"app", "status"}),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "app_operations_total",
			Help:      "Total number of application operations by outcome.",
		}, []string{"app", "operation", "status"}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of export runs by outcome.",
		}, []string{"app", "status"}),
		exportRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_rows_total",
			Help:      "Total rows written by exports.",
		}, []string{"app"}),
		exportBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Total bytes uploaded by exports.",
		}, []string{"app"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of named operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
	}

	registry.MustRegister(
		r.requestsTotal,
		r.requestDuration,
		r.appReadyDuration,
		r.operationsTotal,
		r.exportsTotal,
		r.exportRowsTotal,
		r.exportBytesTotal,
		r.operationDuration,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRequest implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordRequest(ctx context.Context, method string, route string, status int, duration time.Duration) {
	r.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAppReady implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordAppReady(ctx context.Context, label string, duration time.Duration, err error) {
	r.appReadyDuration.WithLabelValues(label, statusOf(err)).Observe(duration.Seconds())
	logger.Debugf("Metrics: app '%s' ready hook took %.3fs.", label, duration.Seconds())
}

// RecordOperation implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordOperation(ctx context.Context, app string, operation string, err error) {
	r.operationsTotal.WithLabelValues(app, operation, statusOf(err)).Inc()
}

// RecordExport implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordExport(ctx context.Context, app string, rows int, bytes int64, err error) {
	r.exportsTotal.WithLabelValues(app, statusOf(err)).Inc()
	r.exportRowsTotal.WithLabelValues(app).Add(float64(rows))
	r.exportBytesTotal.WithLabelValues(app).Add(float64(bytes))
}

// RecordDuration implements metrics.MetricRecorder. Tags are not used as
// labels; only the name is.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDuration.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
