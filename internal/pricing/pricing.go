// Package pricing derives cart totals. Every function is pure: the same
// items, coupon and rate always produce the same result.
//
// Rounding policy: the running subtotal is kept unrounded; the discounted
// total, the tax and the grand total are each rounded to 2 decimal places
// (half-up) at their own boundary. Tax is charged on the pre-discount
// subtotal.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/gowthamvetri/bestea/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// UnitPrice prefers the chosen variant's price and falls back to the base
// product price.
func UnitPrice(item domain.LineItem) decimal.Decimal {
	if item.Variant != nil && item.Variant.Price.IsPositive() {
		return item.Variant.Price
	}
	return item.Product.Price
}

// Subtotal sums unit price times quantity over all items, unrounded.
func Subtotal(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(UnitPrice(item).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// DiscountedTotal applies the coupon to the subtotal and rounds to 2 decimal
// places. This is the only place the discounted amount is rounded.
func DiscountedTotal(subtotal decimal.Decimal, coupon *domain.Coupon) decimal.Decimal {
	if coupon == nil {
		return subtotal.Round(2)
	}
	switch coupon.Kind {
	case domain.CouponPercentage:
		return subtotal.Mul(hundred.Sub(coupon.Value)).Div(hundred).Round(2)
	case domain.CouponFixed:
		discounted := subtotal.Sub(coupon.Value)
		if discounted.IsNegative() {
			return decimal.Zero.Round(2)
		}
		return discounted.Round(2)
	default:
		return subtotal.Round(2)
	}
}

// Tax charges the rate on the pre-discount subtotal, rounded to 2 decimal
// places independently of the discounted total.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(2)
}

// GrandTotal is the discounted total plus tax, rounded to 2 decimal places.
func GrandTotal(discounted, tax decimal.Decimal) decimal.Decimal {
	return discounted.Add(tax).Round(2)
}

// ItemCount sums quantities, not distinct entries.
func ItemCount(items []domain.LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
