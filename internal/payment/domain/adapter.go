package domain

import (
	"context"
	"net/http"
	"time"
)

type AdapterConfig struct {
	Provider         string
	SecretKey        string
	WebhookSecret    string
	APIBaseURL       string
	WebhookTolerance time.Duration
	HTTPClient       *http.Client
	Now              func() time.Time
}

// WebhookAdapter authenticates and decodes provider deliveries.
type WebhookAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	ParseCheckoutCompleted(ctx context.Context, payload []byte) (*CheckoutCompleted, error)
}

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	ListLineItems(ctx context.Context, sessionID string) ([]CheckoutLineItem, error)
}

type PaymentAdapter interface {
	WebhookAdapter
	CheckoutProvider
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}
