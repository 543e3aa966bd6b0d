// Package cartstore holds the normalized cart state for one session. Stores
// are constructed explicitly and passed to their consumers; there is no
// package-level singleton, so every test gets an isolated instance.
package cartstore

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gowthamvetri/bestea/internal/domain"
)

// Store owns a collection of line items plus the single coupon slot.
// At most one line item exists per identity key. Mutations are total
// functions: malformed input (non-positive quantity on Add, an absent key)
// is a silent no-op, never an error.
type Store struct {
	mu      sync.RWMutex
	userID  string
	items   []domain.LineItem
	coupon  *domain.Coupon
	taxRate decimal.Decimal

	version      uint64
	createdAt    time.Time
	lastModified time.Time
	now          func() time.Time

	memoVersion uint64
	memoTotals  Totals
	memoValid   bool
}

func New(userID string, taxRate decimal.Decimal) *Store {
	now := time.Now
	return &Store{
		userID:    userID,
		taxRate:   taxRate,
		createdAt: now(),
		now:       now,
	}
}

// Restore rebuilds a store from a persisted cart snapshot.
func Restore(cart *domain.Cart, taxRate decimal.Decimal) *Store {
	s := New(cart.UserID, taxRate)
	s.items = append(s.items, cart.Items...)
	if cart.Coupon != nil {
		coupon := *cart.Coupon
		s.coupon = &coupon
	}
	if !cart.CreatedAt.IsZero() {
		s.createdAt = cart.CreatedAt
	}
	s.lastModified = cart.UpdatedAt
	return s
}

// Add merges the quantity into an existing entry with the same identity key
// or inserts a new line item. Quantity <= 0 is a caller error and a no-op.
func (s *Store) Add(product domain.Product, quantity int, variant *domain.Variant) {
	if quantity <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.ItemKey(product.ID, variant)
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity += quantity
			s.touch()
			return
		}
	}

	s.items = append(s.items, domain.LineItem{
		Product:  product,
		Variant:  variant,
		Quantity: quantity,
		AddedAt:  s.now(),
	})
	s.touch()
}

// Remove deletes the entry with the given identity key; no-op if absent.
func (s *Store) Remove(productID string, variant *domain.Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(domain.ItemKey(productID, variant))
}

// SetQuantity sets the quantity directly (not additive, unlike Add).
// Quantity <= 0 is equivalent to Remove.
func (s *Store) SetQuantity(productID string, quantity int, variant *domain.Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.ItemKey(productID, variant)
	if quantity <= 0 {
		s.removeLocked(key)
		return
	}
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity = quantity
			s.touch()
			return
		}
	}
}

// Clear empties the collection and drops any coupon.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.coupon = nil
	s.touch()
}

// ApplyCoupon atomically replaces the coupon slot.
func (s *Store) ApplyCoupon(coupon domain.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupon = &coupon
	s.touch()
}

// RemoveCoupon clears the coupon slot; no-op when empty.
func (s *Store) RemoveCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coupon == nil {
		return
	}
	s.coupon = nil
	s.touch()
}

// Version increments on every effective mutation. Consumers key derived
// values on it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) LastModified() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastModified
}

// Snapshot returns a deep copy of the cart suitable for persistence.
func (s *Store) Snapshot() *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart := &domain.Cart{
		UserID:    s.userID,
		Items:     append([]domain.LineItem(nil), s.items...),
		CreatedAt: s.createdAt,
		UpdatedAt: s.lastModified,
	}
	if s.coupon != nil {
		coupon := *s.coupon
		cart.Coupon = &coupon
	}
	return cart
}

func (s *Store) removeLocked(key string) {
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.touch()
			return
		}
	}
}

func (s *Store) touch() {
	s.version++
	s.lastModified = s.now()
	s.memoValid = false
}
