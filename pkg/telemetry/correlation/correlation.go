// Package correlation ties together work that spans several log lines and
// traces, such as one webhook delivery and the order it materializes.
package correlation

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

type key struct{}

func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// Ensure returns ctx unchanged when it already carries an id. Otherwise a new
// ULID is attached.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return WithID(ctx, id), id
}

// Annotate stamps metadata persisted next to provider payloads with the
// correlation id, the active trace and the time it was received. A
// correlation_id already present in metadata wins over the one in ctx.
func Annotate(ctx context.Context, metadata map[string]any) map[string]any {
	if metadata == nil {
		metadata = make(map[string]any, 4)
	}
	if existing, _ := metadata["correlation_id"].(string); existing == "" {
		_, id := Ensure(ctx)
		metadata["correlation_id"] = id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
		metadata["span_id"] = sc.SpanID().String()
	}
	metadata["received_at"] = time.Now().UTC().Format(time.RFC3339)
	return metadata
}
