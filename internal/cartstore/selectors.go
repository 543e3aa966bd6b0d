package cartstore

import (
	"github.com/shopspring/decimal"

	"github.com/gowthamvetri/bestea/internal/domain"
	"github.com/gowthamvetri/bestea/internal/pricing"
)

// Totals is the derived read model of a cart. All monetary fields follow the
// pricing package's rounding boundaries.
type Totals struct {
	Items           []domain.LineItem `json:"items"`
	Coupon          *domain.Coupon    `json:"coupon,omitempty"`
	ItemCount       int               `json:"item_count"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	DiscountedTotal decimal.Decimal   `json:"discounted_total"`
	GrandTotal      decimal.Decimal   `json:"grand_total"`
}

// Totals recomputes the derived values only when the store's version has
// changed since the last call; unchanged state returns the memoized result.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memoValid && s.memoVersion == s.version {
		return s.memoTotals
	}

	items := append([]domain.LineItem(nil), s.items...)
	subtotal := pricing.Subtotal(items)
	discounted := pricing.DiscountedTotal(subtotal, s.coupon)
	tax := pricing.Tax(subtotal, s.taxRate)

	totals := Totals{
		Items:           items,
		ItemCount:       pricing.ItemCount(items),
		Subtotal:        subtotal,
		Tax:             tax,
		DiscountedTotal: discounted,
		GrandTotal:      pricing.GrandTotal(discounted, tax),
	}
	if s.coupon != nil {
		coupon := *s.coupon
		totals.Coupon = &coupon
	}

	s.memoTotals = totals
	s.memoVersion = s.version
	s.memoValid = true
	return totals
}
