package metrics

import (
	"context"
)

// Tracer is an abstract interface for distributed tracing.
type Tracer interface {
	// StartSpan starts a span named name as a child of any span in ctx.
	// The returned function ends the span.
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())

	// RecordError records err on the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records a named event on the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
