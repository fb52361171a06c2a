package domain

import (
	"time"
)

type Action string

const (
	ActionAdjust Action = "ADJUST"
	ActionUpsert Action = "UPSERT"
	ActionSale   Action = "SALE"
)

type Source string

const (
	SourceAdminUI       Source = "admin_ui"
	SourceStripeWebhook Source = "stripe_webhook"
	SourceBulkImport    Source = "bulk_import"
)

func (s Source) Valid() bool {
	switch s {
	case SourceAdminUI, SourceStripeWebhook, SourceBulkImport:
		return true
	default:
		return false
	}
}

// Row is the current on-hand count for one product variant. Version counts
// committed mutations and doubles as the sequence of the latest ledger entry.
type Row struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	ProductID int64      `json:"product_id" gorm:"not null"`
	VariantID int64      `json:"variant_id" gorm:"not null"`
	OnHand    int64      `json:"on_hand" gorm:"not null"`
	Version   int64      `json:"version" gorm:"not null"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"not null"`
}

func (Row) TableName() string { return "inventory_rows" }

func (r Row) Removed() bool { return r.RemovedAt != nil }

// LogEntry is an append-only record of one committed mutation.
type LogEntry struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ProductID int64     `json:"product_id" gorm:"not null"`
	VariantID int64     `json:"variant_id" gorm:"not null"`
	Sequence  int64     `json:"sequence" gorm:"not null"`
	UserID    *string   `json:"user_id,omitempty"`
	Action    Action    `json:"action" gorm:"type:text;not null"`
	Delta     int64     `json:"delta" gorm:"not null"`
	FromQty   int64     `json:"from_qty" gorm:"not null"`
	ToQty     int64     `json:"to_qty" gorm:"not null"`
	Reason    *string   `json:"reason,omitempty"`
	Source    Source    `json:"source" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (LogEntry) TableName() string { return "inventory_log_entries" }
