package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		APIBaseURL:    baseURL,
		Now:           func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return adapter.(*Adapter)
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)
	timestamp := fixedNow.Unix()

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, timestamp))

	adapter := newTestAdapter(t, "")
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, timestamp))
	if err := adapter.Verify(context.Background(), payload, reqHeader); err == nil {
		t.Fatalf("expected invalid signature error")
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, fixedNow.Add(-time.Hour).Unix()))
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, reqHeader), paymentdomain.ErrInvalidSignature)

	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, http.Header{}), paymentdomain.ErrInvalidSignature)
}

func TestNewAdapterRequiresWebhookSecret(t *testing.T) {
	_, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{SecretKey: "sk_test_123"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
}

func TestParseCheckoutCompletedWithExpandedLineItems(t *testing.T) {
	payload := mustJSON(t, map[string]any{
		"id":      "evt_cs",
		"type":    "checkout.session.completed",
		"created": fixedNow.Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":              "cs_test_1",
				"payment_status":  "paid",
				"payment_intent":  "pi_1",
				"amount_subtotal": 2300,
				"amount_total":    2400,
				"currency":        "usd",
				"metadata":        map[string]any{"cart_id": "42"},
				"total_details":   map[string]any{"amount_discount": 0, "amount_shipping": 500},
				"customer_details": map[string]any{
					"email": "buyer@example.com",
					"name":  "Pat Buyer",
				},
				"collected_information": map[string]any{
					"shipping_details": map[string]any{
						"name": "Pat Buyer",
						"address": map[string]any{
							"line1":       "1 Main St",
							"city":        "Portland",
							"state":       "OR",
							"postal_code": "97201",
							"country":     "us",
						},
					},
				},
				"line_items": map[string]any{
					"data": []any{
						map[string]any{
							"description":  "Tote",
							"quantity":     1,
							"amount_total": 1000,
							"price": map[string]any{
								"unit_amount": 1000,
								"product": map[string]any{
									"id":       "prod_1",
									"metadata": map[string]any{"product_id": "7", "variant_id": "70"},
								},
							},
						},
						map[string]any{
							"description":  "Gift card",
							"quantity":     1,
							"amount_total": 1300,
							"price":        map[string]any{"unit_amount": 1300, "product": "prod_2"},
						},
					},
				},
			},
		},
	})

	event, err := newTestAdapter(t, "").ParseCheckoutCompleted(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
	assert.True(t, event.Paid())
	require.NotNil(t, event.CartID)
	assert.Equal(t, int64(42), *event.CartID)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, int64(500), event.AmountShipping)
	assert.Equal(t, "buyer@example.com", event.CustomerEmail)
	assert.Equal(t, "US", event.Shipping.Country)
	assert.Equal(t, "1 Main St", event.Shipping.Line1)

	require.Len(t, event.LineItems, 2)
	assert.Equal(t, int64(7), event.LineItems[0].ProductID)
	require.NotNil(t, event.LineItems[0].VariantID)
	assert.Equal(t, int64(70), *event.LineItems[0].VariantID)
	assert.Zero(t, event.LineItems[1].ProductID)
	assert.Nil(t, event.LineItems[1].VariantID)
}

func TestParseCheckoutCompletedFetchesLineItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_2/line_items", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"li_1","description":"Mug","quantity":2,"amount_total":1600,
			"price":{"unit_amount":800,"product":{"id":"prod_3","metadata":{"product_id":"9"}}}}],"has_more":false}`)
	}))
	defer server.Close()

	payload := mustJSON(t, map[string]any{
		"id":   "evt_async",
		"type": "checkout.session.async_payment_succeeded",
		"data": map[string]any{"object": map[string]any{"id": "cs_test_2", "payment_status": "paid"}},
	})

	event, err := newTestAdapter(t, server.URL).ParseCheckoutCompleted(context.Background(), payload)
	require.NoError(t, err)
	require.Len(t, event.LineItems, 1)
	assert.Equal(t, int64(2), event.LineItems[0].Quantity)
	assert.Equal(t, int64(800), event.LineItems[0].UnitAmount)
	assert.Equal(t, int64(9), event.LineItems[0].ProductID)
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{}}}`)
	_, err := newTestAdapter(t, "").ParseCheckoutCompleted(context.Background(), payload)
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = newTestAdapter(t, "").ParseCheckoutCompleted(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}

func TestCreateCheckoutSession(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
		_, _ = io.WriteString(w, `{"id":"cs_new","url":"https://checkout.stripe.com/c/pay/cs_new"}`)
	}))
	defer server.Close()

	variantID := int64(70)
	session, err := newTestAdapter(t, server.URL).CreateCheckoutSession(context.Background(), paymentdomain.CheckoutSessionRequest{
		Lines: []paymentdomain.CheckoutLine{
			{Title: "Tote", Quantity: 1, UnitAmount: 1000, ProductID: 7, VariantID: &variantID},
			{Title: "Mug", Quantity: 1, UnitAmount: 400, ProductID: 9},
		},
		Currency:        "USD",
		ShippingRateIDs: []string{"shr_free"},
		SuccessURL:      "https://shop.example.com/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       "https://shop.example.com/cart",
		Metadata:        map[string]string{"cart_id": "42"},
		AutomaticTax:    true,
		IdempotencyKey:  "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_new", session.ID)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "usd", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "70", form.Get("line_items[0][price_data][product_data][metadata][variant_id]"))
	assert.Equal(t, "400", form.Get("line_items[1][price_data][unit_amount]"))
	assert.Empty(t, form.Get("line_items[1][price_data][product_data][metadata][variant_id]"))
	assert.Equal(t, "shr_free", form.Get("shipping_options[0][shipping_rate]"))
	assert.Equal(t, "42", form.Get("metadata[cart_id]"))
	assert.Equal(t, "true", form.Get("automatic_tax[enabled]"))
}

func TestCreateCheckoutSessionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"No such shipping rate"}}`)
	}))
	defer server.Close()

	_, err := newTestAdapter(t, server.URL).CreateCheckoutSession(context.Background(), paymentdomain.CheckoutSessionRequest{})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderRequest)
	assert.Contains(t, err.Error(), "No such shipping rate")
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return payload
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
