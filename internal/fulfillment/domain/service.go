package domain

import (
	"context"
	"errors"

	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
)

// Reconciler turns a completed checkout into an order and stock decrements.
type Reconciler interface {
	HandleCheckoutCompleted(ctx context.Context, event *paymentdomain.CheckoutCompleted) (Outcome, error)
}

type RetryService interface {
	ListRetries(ctx context.Context, req ListRetriesRequest) ([]Retry, error)
	// ProcessDue attempts every due retry once.
	ProcessDue(ctx context.Context, limit int) (*RetryBatchResult, error)
}

type ListRetriesRequest struct {
	Status RetryStatus
	Limit  int
}

type RetryBatchResult struct {
	Claimed  int `json:"claimed"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
	Dead     int `json:"dead"`
	// Skipped counts claimed rows another worker resolved first.
	Skipped int `json:"skipped"`
}

var (
	ErrInvalidEvent       = errors.New("invalid_checkout_event")
	ErrInvalidRetryStatus = errors.New("invalid_retry_status")
	// ErrRetryNotPending is returned when a retry left the pending state
	// between being claimed and being resolved.
	ErrRetryNotPending = errors.New("retry_not_pending")
)

// Notifier sends the order summary after fulfillment.
type Notifier interface {
	SendOrderSummary(ctx context.Context, order *orderdomain.Order) error
}

// CartClearer empties a cart once its order exists.
type CartClearer interface {
	Clear(ctx context.Context, cartID int64) error
}
