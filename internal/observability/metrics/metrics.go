package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 10 * time.Second

type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

type counterID int

const (
	inventoryMutations counterID = iota
	inventoryRejections
	paymentEvents
	orderOutcomes
	reconciliationFailures
	checkoutSessions
	counterCount
)

var counterSpecs = [counterCount]struct {
	name        string
	description string
}{
	inventoryMutations:     {"storefront_inventory_mutations_total", "Committed inventory ledger entries."},
	inventoryRejections:    {"storefront_inventory_rejections_total", "Inventory mutations rolled back without a ledger entry."},
	paymentEvents:          {"storefront_payment_events_total", "Verified payment provider webhook events."},
	orderOutcomes:          {"storefront_orders_materialized_total", "Order materialization outcomes."},
	reconciliationFailures: {"storefront_reconciliation_failures_total", "Failed steps after an order was materialized."},
	checkoutSessions:       {"storefront_checkout_sessions_total", "Checkout session attempts by result."},
}

// Metrics holds the storefront counters. A nil *Metrics records nothing, so
// services built without observability need no guard.
type Metrics struct {
	counters [counterCount]metric.Int64Counter
}

// NewProvider installs the global meter provider. With metrics disabled a
// noop provider is installed and nothing is exported.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	protocol := normalizeProtocol(cfg.ExporterProtocol)
	exporter, err := newExporter(protocol, strings.TrimSpace(cfg.ExporterEndpoint))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("metrics")
	if lc != nil {
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
	}
	log.Info("exporting metrics",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", protocol),
		zap.Duration("interval", exportInterval),
	)
	return provider, nil
}

// New registers the storefront counters on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	scope := strings.TrimSpace(cfg.ServiceName)
	if scope == "" {
		scope = "storefront"
	}
	meter := provider.Meter(scope)

	m := &Metrics{}
	for id, spec := range counterSpecs {
		counter, err := meter.Int64Counter(spec.name, metric.WithDescription(spec.description))
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", spec.name, err)
		}
		m.counters[id] = counter
	}
	return m, nil
}

func (m *Metrics) inc(ctx context.Context, id counterID, labels ...string) {
	if m == nil || m.counters[id] == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], strings.TrimSpace(labels[i+1])))
	}
	m.counters[id].Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func (m *Metrics) RecordInventoryMutation(ctx context.Context, action, source string) {
	m.inc(ctx, inventoryMutations, "action", action, "source", source)
}

// RecordInventoryRejection counts mutations that never reached the ledger,
// either because stock would go negative or the transaction failed.
func (m *Metrics) RecordInventoryRejection(ctx context.Context, action, reason string) {
	m.inc(ctx, inventoryRejections, "action", action, "reason", reason)
}

func (m *Metrics) RecordPaymentEvent(ctx context.Context, provider, eventType string) {
	m.inc(ctx, paymentEvents, "provider", provider, "event_type", eventType)
}

// RecordOrderOutcome takes "created" or "duplicate".
func (m *Metrics) RecordOrderOutcome(ctx context.Context, outcome string) {
	m.inc(ctx, orderOutcomes, "outcome", outcome)
}

func (m *Metrics) RecordReconciliationFailure(ctx context.Context, stage string) {
	m.inc(ctx, reconciliationFailures, "stage", stage)
}

func (m *Metrics) RecordCheckoutSession(ctx context.Context, provider, result string) {
	m.inc(ctx, checkoutSessions, "provider", provider, "status_code", result)
}

func normalizeProtocol(protocol string) string {
	switch p := strings.ToLower(strings.TrimSpace(protocol)); p {
	case "", "grpc/protobuf":
		return "grpc"
	case "http/protobuf":
		return "http"
	default:
		return p
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch protocol {
	case "http":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("metrics: unsupported OTLP protocol %q", protocol)
	}
}

// Labels outside this set are dropped. Identifiers such as emails, order
// ids or SKUs would blow up series cardinality.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"action":      {},
	"source":      {},
	"reason":      {},
	"provider":    {},
	"event_type":  {},
	"outcome":     {},
	"stage":       {},
	"status_code": {},
}

func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := attrs[:0:0]
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
