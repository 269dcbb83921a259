package repository

import (
	"context"

	"github.com/vansima/storefront/internal/domain"
)

// CartRepository defines the interface for cart persistence operations.
// Implementations live in the redis and memory subpackages.
type CartRepository interface {
	// Get retrieves a cart by its owner ID.
	Get(ctx context.Context, ownerID string) (*domain.Cart, error)

	// Save persists a cart to the store, overwriting any existing cart for the owner.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes a cart from the store by the owner ID.
	Delete(ctx context.Context, ownerID string) error
}
