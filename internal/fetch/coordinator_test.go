package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gowthamvetri/bestea/internal/domain"
)

type mockClient struct {
	mu          sync.Mutex
	listCalls   int
	getCalls    int
	updateCalls int
	err         error
	updateErr   error
	product     domain.Product
	products    []domain.Product
	categories  []domain.Category
	block       chan struct{} // when set, fetches wait here or for ctx
}

func (m *mockClient) wait(ctx context.Context) error {
	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockClient) ListProducts(ctx context.Context, _ domain.ListingQuery) ([]domain.Product, error) {
	m.mu.Lock()
	m.listCalls++
	err := m.err
	m.mu.Unlock()
	if waitErr := m.wait(ctx); waitErr != nil {
		return nil, waitErr
	}
	if err != nil {
		return nil, err
	}
	return m.products, nil
}

func (m *mockClient) GetProduct(ctx context.Context, _ string) (domain.Product, error) {
	m.mu.Lock()
	m.getCalls++
	err := m.err
	m.mu.Unlock()
	if waitErr := m.wait(ctx); waitErr != nil {
		return domain.Product{}, waitErr
	}
	if err != nil {
		return domain.Product{}, err
	}
	return m.product, nil
}

func (m *mockClient) BestSellers(context.Context) ([]domain.Product, error) {
	return m.products, nil
}

func (m *mockClient) Featured(context.Context) ([]domain.Product, error) {
	return m.products, nil
}

func (m *mockClient) Categories(context.Context) ([]domain.Category, error) {
	return m.categories, nil
}

func (m *mockClient) UpdateProduct(context.Context, domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	return m.updateErr
}

func (m *mockClient) calls() (list, get int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls, m.getCalls
}

func (m *mockClient) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func tea(id string) domain.Product {
	return domain.Product{ID: id, Name: "Sencha", Price: decimal.RequireFromString("4.50")}
}

func newSUT(client Client) *Coordinator {
	return NewCoordinator(client, DefaultTTLs(), zap.NewNop())
}

func TestProduct_CacheFirst(t *testing.T) {
	client := &mockClient{product: tea("tea-1")}
	sut := newSUT(client)

	first, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "tea-1", first.Payload.ID)

	second, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Payload, second.Payload)

	_, gets := client.calls()
	assert.Equal(t, 1, gets, "cache hit must not reach the network")
}

func TestProducts_IdenticalQueriesShareSlot(t *testing.T) {
	client := &mockClient{products: []domain.Product{tea("tea-1")}}
	sut := newSUT(client)

	a := domain.ListingQuery{Page: 1, Filters: map[string]string{"category": "green"}}
	b := domain.ListingQuery{Page: 1, Filters: map[string]string{"category": "green"}}

	_, err := sut.Products(context.Background(), a)
	require.NoError(t, err)
	res, err := sut.Products(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	lists, _ := client.calls()
	assert.Equal(t, 1, lists)
}

func TestProducts_FailureIsNeverCached(t *testing.T) {
	client := &mockClient{products: []domain.Product{tea("tea-1")}}
	client.setErr(errors.New("upstream down"))
	sut := newSUT(client)

	_, err := sut.Products(context.Background(), domain.ListingQuery{Page: 1})
	require.ErrorContains(t, err, "upstream down")

	client.setErr(nil)
	res, err := sut.Products(context.Background(), domain.ListingQuery{Page: 1})
	require.NoError(t, err)
	assert.False(t, res.FromCache, "failed fetch must not populate the cache")

	lists, _ := client.calls()
	assert.Equal(t, 2, lists)
}

func TestProduct_CancellationIsNeverCached(t *testing.T) {
	client := &mockClient{product: tea("tea-1"), block: make(chan struct{})}
	sut := newSUT(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := sut.Product(ctx, "tea-1")
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled fetch did not return")
	}

	client.mu.Lock()
	client.block = nil
	client.mu.Unlock()

	res, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.False(t, res.FromCache, "aborted fetch must not populate the cache")
}

func TestProducts_SingleFlight(t *testing.T) {
	client := &mockClient{products: []domain.Product{tea("tea-1")}, block: make(chan struct{})}
	sut := newSUT(client)

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sut.Products(context.Background(), domain.ListingQuery{Page: 1})
			results <- err
		}()
	}

	// Let every caller reach the in-flight request before releasing it.
	require.Eventually(t, func() bool {
		lists, _ := client.calls()
		return lists >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(client.block)
	wg.Wait()

	close(results)
	for err := range results {
		require.NoError(t, err)
	}
	lists, _ := client.calls()
	assert.Equal(t, 1, lists, "concurrent identical misses must share one call")
}

func TestUpdateProduct_AppliesOptimistically(t *testing.T) {
	client := &mockClient{product: tea("tea-1")}
	sut := newSUT(client)

	_, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)

	updated := tea("tea-1")
	updated.Featured = true
	require.NoError(t, sut.UpdateProduct(context.Background(), updated))

	res, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.True(t, res.Payload.Featured, "optimistic write must be visible in the cache")
}

func TestUpdateProduct_RollsBackOnFailure(t *testing.T) {
	client := &mockClient{product: tea("tea-1")}
	sut := newSUT(client)

	_, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)

	client.updateErr = errors.New("confirmation failed")
	updated := tea("tea-1")
	updated.Featured = true
	require.Error(t, sut.UpdateProduct(context.Background(), updated))

	res, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.False(t, res.Payload.Featured, "failed confirmation must restore the pre-mutation payload")
}

func TestUpdateProduct_UncachedProductStillConfirms(t *testing.T) {
	client := &mockClient{product: tea("tea-1")}
	sut := newSUT(client)

	require.NoError(t, sut.UpdateProduct(context.Background(), tea("tea-1")))
	assert.Equal(t, 1, client.updateCalls)
}

func TestInvalidateAll_EmptiesEveryClass(t *testing.T) {
	client := &mockClient{
		product:    tea("tea-1"),
		products:   []domain.Product{tea("tea-1")},
		categories: []domain.Category{{ID: "green", Name: "Green"}},
	}
	sut := newSUT(client)

	_, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	_, err = sut.Categories(context.Background())
	require.NoError(t, err)

	sut.InvalidateAll()

	res, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	cats, err := sut.Categories(context.Background())
	require.NoError(t, err)
	assert.False(t, cats.FromCache)
}

func TestInvalidateProduct_DropsSingleKey(t *testing.T) {
	client := &mockClient{product: tea("tea-1")}
	sut := newSUT(client)

	_, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)

	sut.InvalidateProduct("tea-1")

	res, err := sut.Product(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	_, gets := client.calls()
	assert.Equal(t, 2, gets)
}

func TestBestSellersAndFeatured_CacheIndependently(t *testing.T) {
	client := &mockClient{products: []domain.Product{tea("tea-1")}}
	sut := newSUT(client)

	best, err := sut.BestSellers(context.Background())
	require.NoError(t, err)
	assert.False(t, best.FromCache)

	featured, err := sut.Featured(context.Background())
	require.NoError(t, err)
	assert.False(t, featured.FromCache, "featured must not be served from the best-seller cache")

	best, err = sut.BestSellers(context.Background())
	require.NoError(t, err)
	assert.True(t, best.FromCache)
}
