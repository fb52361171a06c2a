package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	promotiondomain "github.com/smallbiznis/storefront/internal/promotion/domain"
)

// MaxLineQuantity bounds a single line so totals stay far from overflow.
const MaxLineQuantity = 999

// RawLineItem is a cart line as submitted by the storefront. Numeric fields
// stay json.Number so fractional values can be rejected instead of truncated.
type RawLineItem struct {
	ProductID           json.Number `json:"productId"`
	VariantID           json.Number `json:"variantId,omitempty"`
	Title               string      `json:"title"`
	Quantity            json.Number `json:"quantity"`
	UnitPriceMinorUnits json.Number `json:"unitPriceMinorUnits"`
}

type Request struct {
	CartID        *int64
	Lines         []RawLineItem
	CustomerEmail string
}

type Session struct {
	ID              string   `json:"id"`
	URL             string   `json:"url"`
	Currency        string   `json:"currency"`
	Subtotal        int64    `json:"subtotal"`
	Discount        int64    `json:"discount"`
	Total           int64    `json:"total"`
	PromotionID     string   `json:"promotion_id,omitempty"`
	ShippingRateIDs []string `json:"shipping_rate_ids,omitempty"`
}

// LineItemError names the first offending line of a checkout request.
type LineItemError struct {
	Index int
	Field string
}

func (e *LineItemError) Error() string {
	return fmt.Sprintf("line item %d: invalid %s", e.Index, e.Field)
}

func (e *LineItemError) Unwrap() error {
	return ErrInvalidLineItem
}

var (
	ErrEmptyCart        = errors.New("empty_cart")
	ErrInvalidLineItem  = errors.New("invalid_line_item")
	ErrModeMismatch     = errors.New("payment_mode_mismatch")
	ErrProviderRejected = errors.New("payment_provider_rejected")
	ErrProviderMissing  = errors.New("payment_provider_unavailable")
)

// IsProviderError reports failures attributable to the payment provider or
// its configuration. No order or stock state exists when they occur.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrModeMismatch) ||
		errors.Is(err, ErrProviderRejected) ||
		errors.Is(err, ErrProviderMissing)
}

// ParseLineItems validates raw lines and converts them to cart lines. The
// first invalid line rejects the whole request.
func ParseLineItems(raw []RawLineItem) ([]promotiondomain.CartLine, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyCart
	}
	lines := make([]promotiondomain.CartLine, 0, len(raw))
	for i, item := range raw {
		productID, ok := positiveInt(item.ProductID)
		if !ok {
			return nil, &LineItemError{Index: i, Field: "productId"}
		}
		quantity, ok := positiveInt(item.Quantity)
		if !ok || quantity > MaxLineQuantity {
			return nil, &LineItemError{Index: i, Field: "quantity"}
		}
		unitAmount, ok := positiveInt(item.UnitPriceMinorUnits)
		if !ok {
			return nil, &LineItemError{Index: i, Field: "unitPriceMinorUnits"}
		}

		line := promotiondomain.CartLine{
			ProductID:  productID,
			Title:      strings.TrimSpace(item.Title),
			Quantity:   quantity,
			UnitAmount: unitAmount,
		}
		if item.VariantID != "" {
			variantID, ok := positiveInt(item.VariantID)
			if !ok {
				return nil, &LineItemError{Index: i, Field: "variantId"}
			}
			line.VariantID = &variantID
		}
		if line.Title == "" {
			line.Title = "Item"
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func positiveInt(n json.Number) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(n.String()), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
