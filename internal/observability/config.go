package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/storefront/internal/config"
)

const defaultServiceName = "storefront"

// Config is the logging, tracing and metrics setup. Values come from the
// application config first and can be overridden with the standard OTEL_*
// variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	env := envLookup(os.LookupEnv)

	out := Config{
		ServiceName:          firstSet(cfg.AppName, defaultServiceName),
		Environment:          env.str("DEPLOYMENT_ENV", cfg.Environment),
		Version:              env.str("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:             strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(env.str("LOG_FORMAT", "json")),
		OtelEnabled:          env.boolean("OTEL_ENABLED", false),
		OtelExporterEndpoint: env.str("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(env.str("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSamplingRatio:    env.ratio("OTEL_SAMPLING_RATIO", 0.1),
	}
	if p := env.str("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", ""); p != "" {
		out.OtelExporterProtocol = strings.ToLower(p)
	}
	return out
}

// Debug enables development logging: console output, stack traces on
// errors and gin debug mode.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

type envLookup func(string) (string, bool)

func (e envLookup) str(key, def string) string {
	if v, ok := e(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(def)
}

func (e envLookup) boolean(key string, def bool) bool {
	v, err := strconv.ParseBool(e.str(key, ""))
	if err != nil {
		return def
	}
	return v
}

// ratio parses a sampling ratio, falling back to def outside [0, 1].
func (e envLookup) ratio(key string, def float64) float64 {
	v, err := strconv.ParseFloat(e.str(key, ""), 64)
	if err != nil || v < 0 || v > 1 {
		return def
	}
	return v
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
