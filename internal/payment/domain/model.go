package domain

import (
	"time"

	"gorm.io/datatypes"
)

// EventRecord is one received provider event, kept for idempotent processing.
type EventRecord struct {
	ID              int64          `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Metadata        datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypeCheckoutCompleted = "checkout_completed"

	PaymentStatusPaid = "paid"
)

type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CheckoutLineItem is a purchased line as reported by the provider.
type CheckoutLineItem struct {
	Title       string
	Quantity    int64
	UnitAmount  int64
	AmountTotal int64
	// ProductID is zero when the provider line carries no product reference.
	ProductID int64
	VariantID *int64
}

// CheckoutCompleted is the canonical completion event parsed by adapters.
type CheckoutCompleted struct {
	Provider        string
	ProviderEventID string
	EventType       string
	SessionID       string
	PaymentIntentID string
	PaymentStatus   string
	CartID          *int64

	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	Shipping      Address

	AmountSubtotal int64
	AmountDiscount int64
	AmountShipping int64
	AmountTax      int64
	AmountTotal    int64
	Currency       string

	LineItems  []CheckoutLineItem
	OccurredAt time.Time
	RawPayload []byte
}

func (e *CheckoutCompleted) Paid() bool {
	return e != nil && e.PaymentStatus == PaymentStatusPaid
}

// CheckoutLine is one priced line submitted to the provider.
type CheckoutLine struct {
	Title      string
	Quantity   int64
	UnitAmount int64
	ProductID  int64
	VariantID  *int64
}

type CheckoutSessionRequest struct {
	Lines           []CheckoutLine
	Currency        string
	ShippingRateIDs []string
	SuccessURL      string
	CancelURL       string
	CustomerEmail   string
	Metadata        map[string]string
	AutomaticTax    bool
	IdempotencyKey  string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
