package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var allowedAttributeKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"request_id":              {},
	"storefront.actor":        {},
	"payment.provider":        {},
	"payment.event_type":      {},
	"inventory.action":        {},
	"inventory.source":        {},
	"fulfillment.outcome":     {},
}

// SafeAttributes drops span attributes that are not on the allowlist so
// customer data never reaches the trace backend.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedAttributeKeys[attr.Key]; !ok {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces an error to its message with emails and secrets redacted.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	fields := strings.Fields(msg)
	for i, field := range fields {
		switch {
		case strings.Contains(field, "@"):
			fields[i] = "[redacted]"
		case strings.HasPrefix(field, "sk_"), strings.HasPrefix(field, "rk_"), strings.HasPrefix(field, "whsec_"):
			fields[i] = "[redacted]"
		}
	}
	return errors.New(strings.Join(fields, " "))
}

// ExtractContext restores an inbound trace context from carrier headers.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
