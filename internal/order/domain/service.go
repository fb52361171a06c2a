package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Materialize creates the order for a completed checkout session. Created
	// is false when an order for the session already existed; the stored
	// order is returned unchanged in that case.
	Materialize(ctx context.Context, req MaterializeRequest) (*MaterializeResult, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
}

type MaterializeRequest struct {
	SessionID       string
	PaymentIntentID string
	CartID          *int64

	CustomerEmail string
	CustomerName  string
	CustomerPhone string

	ShipName       string
	ShipLine1      string
	ShipLine2      string
	ShipCity       string
	ShipState      string
	ShipPostalCode string
	ShipCountry    string

	Currency       string
	SubtotalAmount int64
	DiscountAmount int64
	ShippingAmount int64
	TaxAmount      int64
	TotalAmount    int64
	Metadata       map[string]any

	Items []ItemInput
}

type ItemInput struct {
	Title      string
	Quantity   int64
	UnitAmount int64
	// AmountTotal defaults to Quantity * UnitAmount.
	AmountTotal int64
	ProductID   *int64
	VariantID   *int64
}

type MaterializeResult struct {
	Order   *Order
	Created bool
}

var (
	ErrInvalidSessionID = errors.New("invalid_session_id")
	ErrInvalidItem      = errors.New("invalid_order_item")
	ErrOrderNotFound    = errors.New("order_not_found")
)
