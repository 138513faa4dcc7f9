package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	metrics "github.com/tigerroll/storefront/pkg/web/core/metrics"
)

// instrumentationName names the tracer and meter of the framework.
const instrumentationName = "github.com/tigerroll/storefront/pkg/web"

// NewTelemetryProviderFromConfig creates the TelemetryProvider and shuts it down with the application.
func NewTelemetryProviderFromConfig(lc fx.Lifecycle, cfg *config.TelemetryConfig) (*TelemetryProvider, error) {
	p, err := NewTelemetryProvider(context.Background(), *cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: p.Shutdown})
	return p, nil
}

// NewMetricRecorder records into Prometheus and, through the telemetry provider, into OpenTelemetry.
func NewMetricRecorder(prom *PrometheusRecorder, telemetry *TelemetryProvider) metrics.MetricRecorder {
	if !telemetry.Enabled() {
		return prom
	}
	return NewCompositeRecorder(prom, NewOtelRecorder(telemetry.Meter(instrumentationName)))
}

// NewTracer returns the framework Tracer.
func NewTracer(telemetry *TelemetryProvider) metrics.Tracer {
	return NewOpenTelemetryTracer(telemetry.Tracer(instrumentationName))
}

// NewAppReadyObserver reports every ready hook to recorder.
func NewAppReadyObserver(recorder metrics.MetricRecorder) apps.HookObserver {
	return func(label string, elapsed time.Duration, err error) {
		recorder.RecordAppReady(context.Background(), label, elapsed, err)
	}
}

// Module provides the Prometheus and OpenTelemetry backed MetricRecorder and Tracer.
// It replaces core/metrics.Module.
var Module = fx.Options(
	fx.Provide(NewTelemetryProviderFromConfig),
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(func(r *PrometheusRecorder) prometheus.Gatherer { return r.GetRegistry() }),
	fx.Provide(NewMetricRecorder),
	fx.Decorate(NewAsyncMetricRecorderWrapper),
	fx.Provide(NewTracer),
	fx.Provide(fx.Annotate(NewAppReadyObserver, fx.ResultTags(apps.HookObserverGroup))),
)
