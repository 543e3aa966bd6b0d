// Package fetch orchestrates outbound catalog queries with cache-first
// semantics: read the query cache, and only on a miss go to the network,
// writing fresh results back. Concurrent misses on the same key share one
// in-flight call.
package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gowthamvetri/bestea/internal/domain"
	"github.com/gowthamvetri/bestea/internal/querycache"
)

// Client is the downstream catalog API. Implementations return an error for
// failed calls; failures are never cached.
type Client interface {
	ListProducts(ctx context.Context, q domain.ListingQuery) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	BestSellers(ctx context.Context) ([]domain.Product, error)
	Featured(ctx context.Context) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	UpdateProduct(ctx context.Context, p domain.Product) error
}

// TTLs carries one freshness window per resource class. Listings change
// often and stay short-lived; categories barely change at all.
type TTLs struct {
	Listing     time.Duration
	Product     time.Duration
	BestSellers time.Duration
	Featured    time.Duration
	Categories  time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Listing:     time.Minute,
		Product:     15 * time.Minute,
		BestSellers: 30 * time.Minute,
		Featured:    30 * time.Minute,
		Categories:  time.Hour,
	}
}

// Result wraps a payload with its source: served from the query cache or
// fetched over the network.
type Result[T any] struct {
	Payload   T
	FromCache bool
}

// Coordinator owns one query cache per resource class and the single-flight
// group deduplicating concurrent identical misses.
type Coordinator struct {
	client Client
	ttl    TTLs
	log    *zap.Logger

	listings    *querycache.Cache[[]domain.Product]
	products    *querycache.Cache[domain.Product]
	bestSellers *querycache.Cache[[]domain.Product]
	featured    *querycache.Cache[[]domain.Product]
	categories  *querycache.Cache[[]domain.Category]

	sf singleflight.Group
}

func NewCoordinator(client Client, ttl TTLs, log *zap.Logger) *Coordinator {
	return &Coordinator{
		client:      client,
		ttl:         ttl,
		log:         log,
		listings:    querycache.New[[]domain.Product](),
		products:    querycache.New[domain.Product](),
		bestSellers: querycache.New[[]domain.Product](),
		featured:    querycache.New[[]domain.Product](),
		categories:  querycache.New[[]domain.Category](),
	}
}

// Products serves a paged product listing.
func (co *Coordinator) Products(ctx context.Context, q domain.ListingQuery) (Result[[]domain.Product], error) {
	key := querycache.ListingKey(q)
	return lookup(ctx, co, co.listings, key, co.ttl.Listing, func(ctx context.Context) ([]domain.Product, error) {
		return co.client.ListProducts(ctx, q)
	})
}

// Product serves a single-product read.
func (co *Coordinator) Product(ctx context.Context, id string) (Result[domain.Product], error) {
	key := querycache.ProductKey(id)
	return lookup(ctx, co, co.products, key, co.ttl.Product, func(ctx context.Context) (domain.Product, error) {
		return co.client.GetProduct(ctx, id)
	})
}

// BestSellers serves the best-seller list.
func (co *Coordinator) BestSellers(ctx context.Context) (Result[[]domain.Product], error) {
	return lookup(ctx, co, co.bestSellers, querycache.BestSellersKey, co.ttl.BestSellers, co.client.BestSellers)
}

// Featured serves the featured-product list.
func (co *Coordinator) Featured(ctx context.Context) (Result[[]domain.Product], error) {
	return lookup(ctx, co, co.featured, querycache.FeaturedKey, co.ttl.Featured, co.client.Featured)
}

// Categories serves the category list.
func (co *Coordinator) Categories(ctx context.Context) (Result[[]domain.Category], error) {
	return lookup(ctx, co, co.categories, querycache.CategoriesKey, co.ttl.Categories, co.client.Categories)
}

// UpdateProduct applies the change to the cached entry first, then issues the
// confirmation call. When confirmation fails the pre-mutation payload is
// restored, so the cache never keeps an unconfirmed optimistic write.
func (co *Coordinator) UpdateProduct(ctx context.Context, p domain.Product) error {
	key := querycache.ProductKey(p.ID)
	prev, cached := co.products.Replace(key, p)

	if err := co.client.UpdateProduct(ctx, p); err != nil {
		if cached {
			co.products.Replace(key, prev)
		}
		return err
	}
	return nil
}

// InvalidateProduct drops the cached single-product read.
func (co *Coordinator) InvalidateProduct(id string) {
	co.products.Invalidate(querycache.ProductKey(id))
}

// InvalidateListings drops every cached listing page.
func (co *Coordinator) InvalidateListings() {
	co.listings.Clear()
}

// InvalidateAll empties every resource-class cache.
func (co *Coordinator) InvalidateAll() {
	co.listings.Clear()
	co.products.Clear()
	co.bestSellers.Clear()
	co.featured.Clear()
	co.categories.Clear()
}

// lookup is the shared cache-first path. The issuance number is taken inside
// the single-flight callback so a late response from an earlier request can
// never overwrite a fresher entry. Cancelled calls propagate ctx.Err() and
// write nothing.
func lookup[T any](ctx context.Context, co *Coordinator, cache *querycache.Cache[T], key string, ttl time.Duration, fn func(context.Context) (T, error)) (Result[T], error) {
	if payload, ok := cache.Read(key); ok {
		return Result[T]{Payload: payload, FromCache: true}, nil
	}

	v, err, _ := co.sf.Do(key, func() (interface{}, error) {
		issue := cache.Issue()
		payload, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if !cache.Write(key, payload, ttl, issue) {
			co.log.Debug("discarded stale response", zap.String("key", key))
		}
		return payload, nil
	})
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Payload: v.(T)}, nil
}
