package domain

import "time"

// Outcome reports what handling a completion event did.
type Outcome string

const (
	// OutcomeIgnored: the session is not paid yet.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate: an order already existed for the session.
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFulfilled Outcome = "fulfilled"
	// OutcomePartial: the order exists but at least one decrement was queued
	// for retry.
	OutcomePartial Outcome = "partial"
)

type RetryStatus string

const (
	RetryStatusPending  RetryStatus = "pending"
	RetryStatusResolved RetryStatus = "resolved"
	RetryStatusDead     RetryStatus = "dead"
)

// Retry is a stock decrement that failed during reconciliation.
type Retry struct {
	ID            int64       `json:"id,string" gorm:"primaryKey"`
	OrderID       int64       `json:"order_id,string"`
	OrderItemID   int64       `json:"order_item_id,string"`
	SessionID     string      `json:"session_id"`
	ProductID     int64       `json:"product_id,string"`
	VariantID     *int64      `json:"variant_id,omitempty,string"`
	Quantity      int64       `json:"quantity"`
	Status        RetryStatus `json:"status"`
	Attempts      int         `json:"attempts"`
	LastError     *string     `json:"last_error,omitempty"`
	NextAttemptAt time.Time   `json:"next_attempt_at"`
	ResolvedAt    *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Retry) TableName() string { return "fulfillment_retries" }
