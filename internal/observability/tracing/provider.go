package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	obscontext "github.com/smallbiznis/storefront/internal/observability/context"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exporterDialTimeout = 5 * time.Second

type Config struct {
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	Environment      string
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// sampler samples root spans at SamplingRatio and follows the caller's
// decision otherwise. Out of range ratios sample everything.
func (c Config) sampler() sdktrace.Sampler {
	ratio := c.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// NewProvider installs the global tracer provider and W3C propagators.
// Spans are always created so logs can carry trace ids; they are exported
// only when Enabled is set.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(), resource.WithAttributes(
		attribute.String("service.name", strings.TrimSpace(cfg.ServiceName)),
		attribute.String("service.version", strings.TrimSpace(cfg.ServiceVersion)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
		sdktrace.WithSpanProcessor(contextAttributes{}),
	}
	protocol := normalizeProtocol(cfg.ExporterProtocol)
	if cfg.Enabled {
		exporter, err := newExporter(protocol, strings.TrimSpace(cfg.ExporterEndpoint))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if lc != nil {
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
	}
	if log != nil {
		log.Named("tracing").Info("tracer provider installed",
			zap.Bool("export", cfg.Enabled),
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", protocol),
		)
	}
	return tp, nil
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

func newExporter(protocol, endpoint string) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), exporterDialTimeout)
	defer cancel()

	switch protocol {
	case "http":
		var opts []otlptracehttp.Option
		if endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("tracing: unsupported OTLP protocol %q", protocol)
	}
}

// contextAttributes copies the correlation id and actor from the start
// context onto every span, so background jobs and admin calls can be found
// by either.
type contextAttributes struct{}

func (contextAttributes) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if id := correlation.FromContext(ctx); id != "" {
		s.SetAttributes(attribute.String("correlation_id", id))
	}
	if actor := obscontext.ActorFromContext(ctx); actor != "" {
		s.SetAttributes(attribute.String("storefront.actor", actor))
	}
}

func (contextAttributes) OnEnd(sdktrace.ReadOnlySpan) {}

func (contextAttributes) Shutdown(context.Context) error { return nil }

func (contextAttributes) ForceFlush(context.Context) error { return nil }
