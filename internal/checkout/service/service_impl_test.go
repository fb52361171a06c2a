package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	promotionservice "github.com/smallbiznis/storefront/internal/promotion/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type providerMock struct {
	mock.Mock
}

func (m *providerMock) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutSessionRequest) (*paymentdomain.CheckoutSession, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*paymentdomain.CheckoutSession)
	return session, args.Error(1)
}

func (m *providerMock) ListLineItems(ctx context.Context, sessionID string) ([]paymentdomain.CheckoutLineItem, error) {
	args := m.Called(ctx, sessionID)
	return nil, args.Error(1)
}

func testConfig() config.Config {
	return config.Config{
		Storefront: config.StorefrontConfig{SiteURL: "https://shop.example.com", Currency: "usd"},
		Payment: config.PaymentConfig{
			Provider:     "stripe",
			SecretKey:    "sk_live_123",
			LiveHosts:    []string{"shop.example.com"},
			AutomaticTax: true,
		},
		Shipping: config.ShippingConfig{
			StandardRateID:        "shr_std",
			FreeRateID:            "shr_free",
			FreeShippingThreshold: 7500,
		},
	}
}

func newService(cfg config.Config, provider paymentdomain.CheckoutProvider) domain.Service {
	holder := config.NewStaticPromotionConfigHolder(config.PromotionConfig{
		Promotions: []config.PromotionRule{{
			ID:                 "bogo",
			Kind:               config.PromotionKindBOGOHalf,
			Enabled:            true,
			EligibleProductIDs: []string{"10", "11"},
		}},
	})
	promotions := promotionservice.New(promotionservice.Params{
		Log:    zap.NewNop(),
		Config: holder,
		Clock:  clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	params := Params{Log: zap.NewNop(), Cfg: cfg, Promotions: promotions}
	if provider != nil {
		params.Provider = provider
	}
	return New(params)
}

func num(v string) json.Number { return json.Number(v) }

func TestCreateSessionAppliesDiscountAndShipping(t *testing.T) {
	provider := &providerMock{}
	var captured paymentdomain.CheckoutSessionRequest
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(paymentdomain.CheckoutSessionRequest) }).
		Return(&paymentdomain.CheckoutSession{ID: "cs_live_1", URL: "https://checkout.stripe.com/c/pay/cs_live_1"}, nil)

	cartID := int64(42)
	svc := newService(testConfig(), provider)
	session, err := svc.Create(context.Background(), domain.Request{
		CartID: &cartID,
		Lines: []domain.RawLineItem{
			{ProductID: num("10"), Title: "Tote", Quantity: num("1"), UnitPriceMinorUnits: num("6000")},
			{ProductID: num("11"), VariantID: num("110"), Title: "Mug", Quantity: num("1"), UnitPriceMinorUnits: num("2000")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_live_1", session.ID)
	assert.Equal(t, int64(8000), session.Subtotal)
	assert.Equal(t, int64(1000), session.Discount)
	assert.Equal(t, int64(7000), session.Total)
	assert.Equal(t, []string{"shr_free"}, session.ShippingRateIDs)

	require.Len(t, captured.Lines, 2)
	assert.Equal(t, int64(1000), captured.Lines[1].UnitAmount)
	require.NotNil(t, captured.Lines[1].VariantID)
	assert.Equal(t, int64(110), *captured.Lines[1].VariantID)
	assert.Equal(t, "42", captured.Metadata["cart_id"])
	assert.Equal(t, "https://shop.example.com/cart", captured.CancelURL)
	assert.True(t, captured.AutomaticTax)
	assert.Contains(t, captured.IdempotencyKey, "checkout:42:")
	assert.Equal(t, "usd", captured.Currency)
}

func TestCreateSessionIdempotencyKey(t *testing.T) {
	provider := &providerMock{}
	var keys []string
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(paymentdomain.CheckoutSessionRequest).IdempotencyKey)
		}).
		Return(&paymentdomain.CheckoutSession{ID: "cs", URL: "https://pay"}, nil)
	svc := newService(testConfig(), provider)

	cartID := int64(7)
	lines := []domain.RawLineItem{{ProductID: num("20"), Quantity: num("1"), UnitPriceMinorUnits: num("5000")}}
	for i := 0; i < 2; i++ {
		_, err := svc.Create(context.Background(), domain.Request{CartID: &cartID, Lines: lines})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), domain.Request{Lines: lines})
	require.NoError(t, err)

	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[1])
	assert.Empty(t, keys[2])
}

func TestInvalidLineNeverReachesProvider(t *testing.T) {
	provider := &providerMock{}
	svc := newService(testConfig(), provider)

	_, err := svc.Create(context.Background(), domain.Request{Lines: []domain.RawLineItem{
		{ProductID: num("10"), Quantity: num("1"), UnitPriceMinorUnits: num("1000")},
		{ProductID: num("10"), Quantity: num("0"), UnitPriceMinorUnits: num("1000")},
	}})
	var lineErr *domain.LineItemError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 1, lineErr.Index)
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestModeMismatchFailsClosed(t *testing.T) {
	lines := []domain.RawLineItem{{ProductID: num("30"), Quantity: num("1"), UnitPriceMinorUnits: num("1000")}}

	cases := map[string]func(*config.Config){
		"test key on live site": func(c *config.Config) { c.Payment.SecretKey = "sk_test_1" },
		"live key on staging":   func(c *config.Config) { c.Storefront.SiteURL = "https://staging.example.com" },
		"unknown key":           func(c *config.Config) { c.Payment.SecretKey = "whatever" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			provider := &providerMock{}
			_, err := newService(cfg, provider).Create(context.Background(), domain.Request{Lines: lines})
			assert.ErrorIs(t, err, domain.ErrModeMismatch)
			assert.True(t, domain.IsProviderError(err))
			provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
		})
	}
}

func TestProviderRejection(t *testing.T) {
	provider := &providerMock{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, paymentdomain.ErrProviderRequest)

	cfg := testConfig()
	cfg.Shipping = config.ShippingConfig{}
	_, err := newService(cfg, provider).Create(context.Background(), domain.Request{
		Lines: []domain.RawLineItem{{ProductID: num("30"), Quantity: num("1"), UnitPriceMinorUnits: num("1000")}},
	})
	assert.ErrorIs(t, err, domain.ErrProviderRejected)
}

func TestMissingProvider(t *testing.T) {
	_, err := newService(testConfig(), nil).Create(context.Background(), domain.Request{
		Lines: []domain.RawLineItem{{ProductID: num("30"), Quantity: num("1"), UnitPriceMinorUnits: num("1000")}},
	})
	assert.ErrorIs(t, err, domain.ErrProviderMissing)
}
