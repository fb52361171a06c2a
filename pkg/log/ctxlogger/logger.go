// Package ctxlogger tags logs written outside an HTTP request, such as
// background jobs, with a correlation id and the active trace.
package ctxlogger

import (
	"context"
	"sync/atomic"

	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// ForJob starts a job run: the returned context carries a fresh correlation
// id unless one is already set, and the logger carries that id and the job
// name.
func ForJob(ctx context.Context, base *zap.Logger, job string) (context.Context, *zap.Logger) {
	ctx, id := correlation.Ensure(ctx)
	if base == nil {
		base = zap.NewNop()
	}
	return ctx, base.With(append(jobFields(ctx), zap.String("correlation_id", id), zap.String("job", job))...)
}

// WithContext adds the correlation id and active span from ctx, skipping
// whichever is absent.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	fields := jobFields(ctx)
	if id := correlation.FromContext(ctx); id != "" {
		fields = append(fields, zap.String("correlation_id", id))
	}
	return base.With(fields...)
}

func jobFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if name := serviceName.Load(); name != nil {
		fields = append(fields, zap.String("service_name", *name))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()), zap.String("span_id", sc.SpanID().String()))
	}
	return fields
}
