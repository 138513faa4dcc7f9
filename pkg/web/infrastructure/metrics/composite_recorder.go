package metrics

import (
	"context"
	"time"

	metrics "github.com/tigerroll/storefront/pkg/web/core/metrics"
)

// CompositeRecorder forwards every call to each of its recorders in order.
type CompositeRecorder struct {
	recorders []metrics.MetricRecorder
}

// NewCompositeRecorder creates a CompositeRecorder. Nil recorders are skipped.
func NewCompositeRecorder(recorders ...metrics.MetricRecorder) *CompositeRecorder {
	c := &CompositeRecorder{}
	for _, r := range recorders {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
	return c
}

func (c *CompositeRecorder) RecordRequest(ctx context.Context, method string, route string, status int, duration time.Duration) {
	for _, r := range c.recorders {
		r.RecordRequest(ctx, method, route, status, duration)
	}
}

func (c *CompositeRecorder) RecordAppReady(ctx context.Context, label string, duration time.Duration, err error) {
	for _, r := range c.recorders {
		r.RecordAppReady(ctx, label, duration, err)
	}
}

func (c *CompositeRecorder) RecordOperation(ctx context.Context, app string, operation string, err error) {
	for _, r := range c.recorders {
		r.RecordOperation(ctx, app, operation, err)
	}
}

func (c *CompositeRecorder) RecordExport(ctx context.Context, app string, rows int, bytes int64, err error) {
	for _, r := range c.recorders {
		r.RecordExport(ctx, app, rows, bytes, err)
	}
}

func (c *CompositeRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range c.recorders {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

var _ metrics.MetricRecorder = (*CompositeRecorder)(nil)
