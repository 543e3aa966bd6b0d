package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gowthamvetri/bestea/internal/domain"
	"github.com/gowthamvetri/bestea/internal/repository"
)

var taxRate = decimal.RequireFromString("0.10")

type mockRepository struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	loadErr error
	saveErr error
	saves   int
	deletes int
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: make(map[string]*domain.Cart)}
}

func (m *mockRepository) Load(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (m *mockRepository) Save(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.carts[cart.UserID] = cart
	return nil
}

func (m *mockRepository) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.carts, userID)
	return nil
}

func (m *mockRepository) saved(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func product(id, price string) domain.Product {
	return domain.Product{ID: id, Name: id, Price: dec(price)}
}

func TestAddItem_PersistsSnapshot(t *testing.T) {
	repo := newMockRepository()
	sut := NewCartService(repo, taxRate, zap.NewNop())

	require.NoError(t, sut.AddItem(context.Background(), "u1", product("a", "4.50"), 2, nil))

	saved := repo.saved("u1")
	require.NotNil(t, saved)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, 2, saved.Items[0].Quantity)
	assert.Equal(t, "u1", saved.UserID)
}

func TestTotals_RestoredFromRepository(t *testing.T) {
	repo := newMockRepository()
	repo.carts["u1"] = &domain.Cart{
		UserID: "u1",
		Items: []domain.LineItem{
			{Product: product("a", "200"), Quantity: 1},
		},
		Coupon: &domain.Coupon{Code: "TEA50", Kind: domain.CouponFixed, Value: dec("50")},
	}
	sut := NewCartService(repo, taxRate, zap.NewNop())

	totals, err := sut.Totals(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, totals.ItemCount)
	assert.True(t, dec("150").Equal(totals.DiscountedTotal), "discounted %s", totals.DiscountedTotal)
	assert.True(t, dec("170").Equal(totals.GrandTotal), "grand %s", totals.GrandTotal)
}

func TestTotals_UnknownUserGetsEmptyCart(t *testing.T) {
	sut := NewCartService(newMockRepository(), taxRate, zap.NewNop())

	totals, err := sut.Totals(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Empty(t, totals.Items)
	assert.True(t, totals.GrandTotal.IsZero())
}

func TestAddItem_LoadErrorPropagates(t *testing.T) {
	repo := newMockRepository()
	repo.loadErr = fmt.Errorf("storage down")
	sut := NewCartService(repo, taxRate, zap.NewNop())

	err := sut.AddItem(context.Background(), "u1", product("a", "1"), 1, nil)
	require.ErrorContains(t, err, "storage down")
}

func TestAddItem_PersistFailureDoesNotFailMutation(t *testing.T) {
	repo := newMockRepository()
	repo.saveErr = fmt.Errorf("write refused")
	sut := NewCartService(repo, taxRate, zap.NewNop())

	require.NoError(t, sut.AddItem(context.Background(), "u1", product("a", "10"), 1, nil))

	totals, err := sut.Totals(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, totals.ItemCount, "in-memory cart keeps the mutation")
}

func TestSetQuantity_ZeroRemovesAndPersists(t *testing.T) {
	repo := newMockRepository()
	sut := NewCartService(repo, taxRate, zap.NewNop())

	require.NoError(t, sut.AddItem(context.Background(), "u1", product("a", "10"), 2, nil))
	require.NoError(t, sut.SetQuantity(context.Background(), "u1", "a", 0, nil))

	saved := repo.saved("u1")
	require.NotNil(t, saved)
	assert.Empty(t, saved.Items)
}

func TestClearCart_DeletesPersistedSnapshot(t *testing.T) {
	repo := newMockRepository()
	sut := NewCartService(repo, taxRate, zap.NewNop())

	require.NoError(t, sut.AddItem(context.Background(), "u1", product("a", "10"), 1, nil))
	require.NoError(t, sut.ApplyCoupon(context.Background(), "u1", domain.Coupon{Code: "X", Kind: domain.CouponFixed, Value: dec("1")}))
	require.NoError(t, sut.ClearCart(context.Background(), "u1"))

	assert.Equal(t, 1, repo.deletes)
	totals, err := sut.Totals(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, totals.Items)
	assert.Nil(t, totals.Coupon)
}

func TestCoupon_ApplyAndRemove(t *testing.T) {
	repo := newMockRepository()
	sut := NewCartService(repo, taxRate, zap.NewNop())

	require.NoError(t, sut.AddItem(context.Background(), "u1", product("a", "100"), 1, nil))
	require.NoError(t, sut.ApplyCoupon(context.Background(), "u1", domain.Coupon{Code: "P25", Kind: domain.CouponPercentage, Value: dec("25")}))

	totals, err := sut.Totals(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, dec("75").Equal(totals.DiscountedTotal))

	require.NoError(t, sut.RemoveCoupon(context.Background(), "u1"))
	totals, err = sut.Totals(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(totals.DiscountedTotal))
}

func TestStore_ConcurrentFirstAccessSharesOneRestore(t *testing.T) {
	repo := newMockRepository()
	repo.carts["u1"] = &domain.Cart{
		UserID: "u1",
		Items:  []domain.LineItem{{Product: product("a", "10"), Quantity: 1}},
	}
	sut := NewCartService(repo, taxRate, zap.NewNop())

	const callers = 8
	var wg sync.WaitGroup
	stores := make([]interface{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := sut.store(context.Background(), "u1")
			assert.NoError(t, err)
			stores[i] = st
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, stores[0], stores[i], "all callers must share one store instance")
	}
}
