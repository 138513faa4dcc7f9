package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/core/config"
	metrics "github.com/tigerroll/storefront/pkg/web/core/metrics"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// MetricEvent is a metric call queued for the worker goroutine.
type MetricEvent struct {
	Type string
	// Ctx keeps the values of the caller's context without its cancellation.
	Ctx context.Context

	Method    string // RecordRequest
	Route     string
	Status    int
	Name      string // app label, or the name passed to RecordDuration
	Operation string
	Rows      int
	Bytes     int64
	Err       error
	Duration  time.Duration
	Tags      map[string]string
}

// Metric event type constants
const (
	MetricEventTypeRequest        = "request"
	MetricEventTypeAppReady       = "app_ready"
	MetricEventTypeOperation      = "operation"
	MetricEventTypeExport         = "export"
	MetricEventTypeRecordDuration = "record_duration"
)

// AsyncMetricRecorder records metrics by pushing events to a channel
// and processing them in a separate goroutine.
type AsyncMetricRecorder struct {
	eventQueue   chan MetricEvent
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	syncRecorder metrics.MetricRecorder
}

// NewAsyncMetricRecorder creates a new asynchronous metric recorder.
// If bufferSize is 0 or less, 100 is used.
func NewAsyncMetricRecorder(bufferSize int, syncRec metrics.MetricRecorder) *AsyncMetricRecorder {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	r := &AsyncMetricRecorder{
		eventQueue:   make(chan MetricEvent, bufferSize),
		stopCh:       make(chan struct{}),
		syncRecorder: syncRec,
	}
	r.wg.Add(1)
	go r.run()
	logger.Debugf("AsyncMetricRecorder: Worker goroutine started (buffer size: %d).", bufferSize)
	return r
}

func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.eventQueue:
			r.processEvent(event)
		case <-r.stopCh:
			// Drain what is already queued before exiting.
			remaining := len(r.eventQueue)
			for i := 0; i < remaining; i++ {
				r.processEvent(<-r.eventQueue)
			}
			logger.Debugf("AsyncMetricRecorder: Worker goroutine stopped. Processed %d remaining events.", remaining)
			return
		}
	}
}

func (r *AsyncMetricRecorder) processEvent(event MetricEvent) {
	ctx := event.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	switch event.Type {
	case MetricEventTypeRequest:
		r.syncRecorder.RecordRequest(ctx, event.Method, event.Route, event.Status, event.Duration)
	case MetricEventTypeAppReady:
		r.syncRecorder.RecordAppReady(ctx, event.Name, event.Duration, event.Err)
	case MetricEventTypeOperation:
		r.syncRecorder.RecordOperation(ctx, event.Name, event.Operation, event.Err)
	case MetricEventTypeExport:
		r.syncRecorder.RecordExport(ctx, event.Name, event.Rows, event.Bytes, event.Err)
	case MetricEventTypeRecordDuration:
		r.syncRecorder.RecordDuration(ctx, event.Name, event.Duration, event.Tags)
	default:
		logger.Warnf("AsyncMetricRecorder: Unknown metric event type: %s", event.Type)
	}
}

// Close stops the worker after it has processed the events already queued.
// It is safe to call more than once.
func (r *AsyncMetricRecorder) Close() {
	r.stopOnce.Do(func() {
		logger.Debugf("AsyncMetricRecorder: Sending shutdown signal...")
		close(r.stopCh)
	})
	r.wg.Wait()
}

// sendEvent queues an event, dropping it with a warning when the queue is full.
func (r *AsyncMetricRecorder) sendEvent(ctx context.Context, event MetricEvent) {
	if ctx != nil {
		event.Ctx = context.WithoutCancel(ctx)
	}
	select {
	case r.eventQueue <- event:
	default:
		logger.Warnf("AsyncMetricRecorder: Event queue is full (type: %s, name: %s). Event discarded.", event.Type, event.Name)
	}
}

func (r *AsyncMetricRecorder) RecordRequest(ctx context.Context, method string, route string, status int, duration time.Duration) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeRequest, Method: method, Route: route, Status: status, Duration: duration, Name: route})
}

func (r *AsyncMetricRecorder) RecordAppReady(ctx context.Context, label string, duration time.Duration, err error) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeAppReady, Name: label, Duration: duration, Err: err})
}

func (r *AsyncMetricRecorder) RecordOperation(ctx context.Context, app string, operation string, err error) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeOperation, Name: app, Operation: operation, Err: err})
}

func (r *AsyncMetricRecorder) RecordExport(ctx context.Context, app string, rows int, bytes int64, err error) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeExport, Name: app, Rows: rows, Bytes: bytes, Err: err})
}

func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeRecordDuration, Name: name, Duration: duration, Tags: tags})
}

var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

// NewAsyncMetricRecorderWrapper is used with fx.Decorate. It wraps the recorder
// when telemetry.metrics_async_buffer_size is positive and closes it on shutdown.
func NewAsyncMetricRecorderWrapper(lc fx.Lifecycle, cfg *config.TelemetryConfig, syncRecorder metrics.MetricRecorder) metrics.MetricRecorder {
	if cfg.MetricsAsyncBufferSize <= 0 {
		return syncRecorder
	}
	asyncRecorder := NewAsyncMetricRecorder(cfg.MetricsAsyncBufferSize, syncRecorder)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			asyncRecorder.Close()
			return nil
		},
	})
	logger.Debugf("MetricRecorder decorated with asynchronous wrapper.")
	return asyncRecorder
}
