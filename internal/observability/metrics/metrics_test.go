package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("action", "SALE"),
		attribute.String("customer_email", "buyer@example.com"),
		attribute.String("source", "stripe_webhook"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("action"))
	assert.Contains(t, keys, attribute.Key("source"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordInventoryMutation(ctx, "SALE", "stripe_webhook")
		m.RecordInventoryRejection(ctx, "ADJUST", "negative_stock")
		m.RecordOrderOutcome(ctx, "fulfilled")
		m.RecordReconciliationFailure(ctx, "inventory")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "storefront"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordPaymentEvent(context.Background(), "stripe", "checkout.session.completed")
		m.RecordCheckoutSession(context.Background(), "stripe", "created")
	})
}

func TestNormalizeProtocol(t *testing.T) {
	assert.Equal(t, "grpc", normalizeProtocol(""))
	assert.Equal(t, "grpc", normalizeProtocol("gRPC/protobuf"))
	assert.Equal(t, "http", normalizeProtocol(" http/protobuf "))
	assert.Equal(t, "kafka", normalizeProtocol("kafka"))

	_, err := newExporter("kafka", "")
	assert.Error(t, err)
}

func TestNewRegistersEveryCounter(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	for id := range m.counters {
		assert.NotNil(t, m.counters[id], counterSpecs[id].name)
	}
}
