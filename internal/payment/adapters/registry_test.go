package adapters_test

import (
	"testing"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/payment/adapters"
	"github.com/smallbiznis/storefront/internal/payment/adapters/stripe"
	"github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryLookupNormalizesName(t *testing.T) {
	r := adapters.NewRegistry(stripe.NewFactory(), nil)
	assert.Equal(t, []string{"stripe"}, r.Providers())

	_, ok := r.Lookup("  Stripe ")
	assert.True(t, ok)
	_, ok = r.Lookup("paypal")
	assert.False(t, ok)

	var empty *adapters.Registry
	_, ok = empty.Lookup("stripe")
	assert.False(t, ok)
}

func TestRegistryBuildUnknownProvider(t *testing.T) {
	r := adapters.NewRegistry(stripe.NewFactory())
	_, err := r.Build("paypal", domain.AdapterConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestNewCheckoutProvider(t *testing.T) {
	r := adapters.NewRegistry(stripe.NewFactory())

	provider := adapters.NewCheckoutProvider(r, config.Config{Payment: config.PaymentConfig{
		Provider:      "stripe",
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
	}}, zap.NewNop())
	assert.NotNil(t, provider)

	missing := adapters.NewCheckoutProvider(r, config.Config{Payment: config.PaymentConfig{Provider: "paypal"}}, zap.NewNop())
	assert.Nil(t, missing)
}
