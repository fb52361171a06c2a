package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	// Set records an absolute count (UPSERT).
	Set(ctx context.Context, req SetRequest) (*MutationResult, error)
	// Adjust applies a signed delta (ADJUST).
	Adjust(ctx context.Context, req AdjustRequest) (*MutationResult, error)
	// RecordSale decrements by the purchased quantity (SALE).
	RecordSale(ctx context.Context, req SaleRequest) (*MutationResult, error)

	Get(ctx context.Context, productID, variantID int64) (*Row, error)
	List(ctx context.Context, req ListRequest) ([]Row, error)
	History(ctx context.Context, req HistoryRequest) ([]LogEntry, error)
	Verify(ctx context.Context, productID, variantID int64) (*VerifyResult, error)

	AddVariant(ctx context.Context, req AddVariantRequest) (*AddVariantResult, error)
	RemoveRow(ctx context.Context, productID, variantID int64) error
}

// TxHook runs inside the mutation's transaction after the ledger entry is
// written. Returning an error rolls the whole mutation back.
type TxHook func(ctx context.Context, tx *gorm.DB) error

// Mutation carries the fields every mutating request shares.
type Mutation struct {
	ProductID int64
	VariantID int64
	UserID    *string
	Reason    *string
	Source    Source
	Hook      TxHook
}

type SetRequest struct {
	Mutation
	Quantity int64
}

type AdjustRequest struct {
	Mutation
	Delta int64
}

type SaleRequest struct {
	Mutation
	Quantity int64
}

type MutationResult struct {
	Row   Row      `json:"row"`
	Entry LogEntry `json:"entry"`
}

type ListRequest struct {
	ProductID      int64
	IncludeRemoved bool
	LowStockBelow  *int64
	AfterID        int64
	Limit          int
}

type HistoryRequest struct {
	ProductID     int64
	VariantID     int64
	AfterSequence int64
	Limit         int
}

type VerifyResult struct {
	ProductID  int64 `json:"product_id"`
	VariantID  int64 `json:"variant_id"`
	OnHand     int64 `json:"on_hand"`
	Replayed   int64 `json:"replayed"`
	Entries    int   `json:"entries"`
	Consistent bool  `json:"consistent"`
}

type AddVariantRequest struct {
	ProductID       int64
	Name            string
	SKU             string
	UnitAmount      int64
	InitialQuantity *int64
	UserID          *string
}

type AddVariantResult struct {
	VariantID int64  `json:"variant_id"`
	SKU       string `json:"sku"`
	Row       *Row   `json:"row,omitempty"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidSource   = errors.New("invalid_source")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidDelta    = errors.New("invalid_delta")
	ErrNegativeStock   = errors.New("negative_stock")
	ErrRowNotFound     = errors.New("inventory_row_not_found")
	ErrTransient       = errors.New("inventory_transient_conflict")
	ErrLedgerMismatch  = errors.New("inventory_ledger_mismatch")
)

// IsValidationError reports errors caused by the request itself; they leave
// no trace in the ledger.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidSource) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidDelta) ||
		errors.Is(err, ErrNegativeStock)
}
