// Package cart stores each seller's persistent cart lines in MongoDB behind a Redis cache.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/order-desk/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
	ErrCacheMiss    = errors.New("cache miss")
)

type Cart struct {
	SellerID  string            `json:"seller_id"`
	Lines     []domain.CartLine `json:"lines"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Repository is the persistent cart store.
type Repository interface {
	GetCart(ctx context.Context, sellerID string) (*Cart, error)
	// AddItem adds line, summing quantities with an existing line of the same product and variant.
	AddItem(ctx context.Context, sellerID string, line domain.CartLine) error
	UpdateItemQuantity(ctx context.Context, sellerID string, key domain.LineKey, quantity int) error
	RemoveItem(ctx context.Context, sellerID string, key domain.LineKey) error
	DeleteCart(ctx context.Context, sellerID string) error
}

type Cache interface {
	Get(ctx context.Context, sellerID string) (*Cart, error)
	Set(ctx context.Context, sellerID string, cart *Cart) error
	Delete(ctx context.Context, sellerID string) error
}
