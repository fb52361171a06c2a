package domain

import (
	"sort"
	"time"
)

type cartUnit struct {
	line  int
	price int64
}

// Apply prices lines under promo. Eligible units are ranked by price, highest
// first with ties kept in cart order, and every second unit of the ranking is
// sold at half price rounded in the shop's favour. Lines come back in cart
// order; ineligible lines are untouched.
func Apply(lines []CartLine, promo *Promotion, now time.Time) Result {
	var result Result
	for _, line := range lines {
		result.Subtotal += line.Quantity * line.UnitAmount
	}

	discounted := make([]int64, len(lines))
	if promo.Active(now) {
		var units []cartUnit
		for i, line := range lines {
			if !promo.IsEligible(line.ProductID) {
				continue
			}
			for q := int64(0); q < line.Quantity; q++ {
				units = append(units, cartUnit{line: i, price: line.UnitAmount})
			}
		}

		if len(units) >= 2 {
			sort.SliceStable(units, func(a, b int) bool {
				return units[a].price > units[b].price
			})
			for i := 1; i < len(units); i += 2 {
				discounted[units[i].line]++
				result.Discount += units[i].price / 2
			}
			result.PromotionID = promo.ID
		}
	}

	result.Lines = make([]PricedLine, 0, len(lines))
	for i, line := range lines {
		half := discounted[i]
		full := line.Quantity - half

		if full > 0 || half == 0 {
			result.Lines = append(result.Lines, PricedLine{
				LineIndex:          i,
				ProductID:          line.ProductID,
				VariantID:          line.VariantID,
				Title:              line.Title,
				Quantity:           full,
				UnitAmount:         line.UnitAmount,
				OriginalUnitAmount: line.UnitAmount,
			})
		}
		if half > 0 {
			result.Lines = append(result.Lines, PricedLine{
				LineIndex:          i,
				ProductID:          line.ProductID,
				VariantID:          line.VariantID,
				Title:              line.Title,
				Quantity:           half,
				UnitAmount:         line.UnitAmount - line.UnitAmount/2,
				OriginalUnitAmount: line.UnitAmount,
				Discounted:         true,
			})
		}
	}

	result.Total = result.Subtotal - result.Discount
	return result
}

// Select returns the first promotion active at now, or nil.
func Select(promos []Promotion, now time.Time) *Promotion {
	for i := range promos {
		if promos[i].Active(now) {
			return &promos[i]
		}
	}
	return nil
}
