package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gowthamvetri/bestea/internal/cartstore"
	"github.com/gowthamvetri/bestea/internal/domain"
	"github.com/gowthamvetri/bestea/internal/repository"
)

// CartService orchestrates per-user cart stores. A user's store is restored
// from the repository on first access in a session and written back after
// every mutation. A persistence failure after a successful in-memory
// mutation is logged, not surfaced; the cart itself never rejects a
// well-formed operation.
type CartService struct {
	repo    repository.CartRepository
	taxRate decimal.Decimal
	log     *zap.Logger

	mu    sync.Mutex
	carts map[string]*cartstore.Store
	sfg   singleflight.Group // Prevents duplicate restores for the same user
}

func NewCartService(repo repository.CartRepository, taxRate decimal.Decimal, log *zap.Logger) *CartService {
	return &CartService{
		repo:    repo,
		taxRate: taxRate,
		log:     log,
		carts:   make(map[string]*cartstore.Store),
	}
}

// Totals returns the derived read model of the user's cart.
func (s *CartService) Totals(ctx context.Context, userID string) (cartstore.Totals, error) {
	st, err := s.store(ctx, userID)
	if err != nil {
		return cartstore.Totals{}, err
	}
	return st.Totals(), nil
}

func (s *CartService) AddItem(ctx context.Context, userID string, product domain.Product, quantity int, variant *domain.Variant) error {
	st, err := s.store(ctx, userID)
	if err != nil {
		return err
	}
	st.Add(product, quantity, variant)
	s.persist(st)
	return nil
}

func (s *CartService) SetQuantity(ctx context.Context, userID, productID string, quantity int, variant *domain.Variant) error {
	st, err := s.store(ctx, userID)
	if err != nil {
		return err
	}
	st.SetQuantity(productID, quantity, variant)
	s.persist(st)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string, variant *domain.Variant) error {
	st, err := s.store(ctx, userID)
	if err != nil {
		return err
	}
	st.Remove(productID, variant)
	s.persist(st)
	return nil
}

func (s *CartService) ApplyCoupon(ctx context.Context, userID string, coupon domain.Coupon) error {
	st, err := s.store(ctx, userID)
	if err != nil {
		return err
	}
	st.ApplyCoupon(coupon)
	s.persist(st)
	return nil
}

func (s *CartService) RemoveCoupon(ctx context.Context, userID string) error {
	st, err := s.store(ctx, userID)
	if err != nil {
		return err
	}
	st.RemoveCoupon()
	s.persist(st)
	return nil
}

// ClearCart empties the cart and deletes its persisted snapshot.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	st, err := s.store(ctx, userID)
	if err != nil {
		return err
	}
	st.Clear()

	deleteCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.repo.Delete(deleteCtx, userID); err != nil {
		s.log.Warn("cart delete failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// store returns the user's in-memory cart, restoring it from the repository
// on first access. Concurrent first accesses share one restore.
func (s *CartService) store(ctx context.Context, userID string) (*cartstore.Store, error) {
	s.mu.Lock()
	st, ok := s.carts[userID]
	s.mu.Unlock()
	if ok {
		return st, nil
	}

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.repo.Load(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
			return nil, err
		}

		var restored *cartstore.Store
		if err != nil {
			restored = cartstore.New(userID, s.taxRate)
		} else {
			restored = cartstore.Restore(cart, s.taxRate)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.carts[userID]; ok {
			return existing, nil
		}
		s.carts[userID] = restored
		return restored, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cartstore.Store), nil
}

func (s *CartService) persist(st *cartstore.Store) {
	snapshot := st.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.log.Warn("cart persist failed", zap.String("user_id", snapshot.UserID), zap.Error(err))
	}
}
