package repository

import (
	"context"
	"errors"

	"github.com/gowthamvetri/bestea/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository defines the durable storage for cart snapshots. The cart and
// its coupon are the only state that survives a session; query caches never
// go through here.
// Consumers define this interface, not the storage implementations.
type CartRepository interface {
	Load(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}
