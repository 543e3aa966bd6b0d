package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon kinds.
const (
	CouponPercentage = "percentage"
	CouponFixed      = "fixed"
)

// Coupon is the single discount slot of a cart. Applying a new coupon
// replaces the previous one.
type Coupon struct {
	Code  string          `json:"code"`
	Kind  string          `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// LineItem is one cart entry: a product, an optional chosen variant and a
// positive quantity.
type LineItem struct {
	Product  Product   `json:"product"`
	Variant  *Variant  `json:"variant,omitempty"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// Key returns the identity key of the line item. A cart holds at most one
// entry per key.
func (li LineItem) Key() string {
	return ItemKey(li.Product.ID, li.Variant)
}

// ItemKey builds the cart identity key for a product and an optional variant.
func ItemKey(productID string, v *Variant) string {
	if v == nil {
		return productID
	}
	return productID + "::" + v.Key()
}

// Cart is the persisted snapshot of a user's cart.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []LineItem `json:"items"`
	Coupon    *Coupon    `json:"coupon,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
