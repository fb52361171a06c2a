package adapters

import (
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/payment/domain"
	"go.uber.org/zap"
)

// AdapterConfigFrom maps the payment section of the application config.
func AdapterConfigFrom(cfg config.PaymentConfig) domain.AdapterConfig {
	return domain.AdapterConfig{
		Provider:         cfg.Provider,
		SecretKey:        cfg.SecretKey,
		WebhookSecret:    cfg.WebhookSecret,
		APIBaseURL:       cfg.APIBaseURL,
		WebhookTolerance: cfg.WebhookTolerance,
	}
}

// NewCheckoutProvider builds the configured provider for session creation.
// It returns nil when the provider is not configured; checkout then fails
// with a provider error instead of the process refusing to start.
func NewCheckoutProvider(registry *Registry, cfg config.Config, log *zap.Logger) domain.CheckoutProvider {
	adapter, err := registry.Build(cfg.Payment.Provider, AdapterConfigFrom(cfg.Payment))
	if err != nil {
		log.Warn("payment provider not configured, checkout disabled",
			zap.String("provider", cfg.Payment.Provider),
			zap.Strings("available", registry.Providers()),
			zap.Error(err),
		)
		return nil
	}
	return adapter
}
