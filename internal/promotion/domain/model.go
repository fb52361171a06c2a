package domain

import "time"

// CartLine is one cart line as priced by the storefront.
type CartLine struct {
	ProductID  int64  `json:"product_id"`
	VariantID  *int64 `json:"variant_id,omitempty"`
	Title      string `json:"title"`
	Quantity   int64  `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}

// PricedLine is a cart line after discounting. A cart line whose units are
// only partly discounted yields two priced lines.
type PricedLine struct {
	LineIndex          int    `json:"line_index"`
	ProductID          int64  `json:"product_id"`
	VariantID          *int64 `json:"variant_id,omitempty"`
	Title              string `json:"title"`
	Quantity           int64  `json:"quantity"`
	UnitAmount         int64  `json:"unit_amount"`
	OriginalUnitAmount int64  `json:"original_unit_amount"`
	Discounted         bool   `json:"discounted"`
}

func (l PricedLine) Amount() int64 {
	return l.Quantity * l.UnitAmount
}

type Result struct {
	Lines       []PricedLine `json:"lines"`
	PromotionID string       `json:"promotion_id,omitempty"`
	Subtotal    int64        `json:"subtotal"`
	Discount    int64        `json:"discount"`
	Total       int64        `json:"total"`
}

// Promotion is a buy-one-get-one-half-off offer over a set of products.
type Promotion struct {
	ID       string
	Name     string
	Enabled  bool
	Eligible map[int64]struct{}
	// Zero bounds are open.
	StartsAt time.Time
	EndsAt   time.Time
}

// Active reports whether the promotion applies at now. EndsAt is exclusive.
func (p *Promotion) Active(now time.Time) bool {
	if p == nil || !p.Enabled {
		return false
	}
	if !p.StartsAt.IsZero() && now.Before(p.StartsAt) {
		return false
	}
	if !p.EndsAt.IsZero() && !now.Before(p.EndsAt) {
		return false
	}
	return true
}

func (p *Promotion) IsEligible(productID int64) bool {
	if p == nil {
		return false
	}
	_, ok := p.Eligible[productID]
	return ok
}
