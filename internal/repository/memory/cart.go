package memory

import (
	"context"
	"sync"

	"github.com/vansima/storefront/internal/domain"
	apperrors "github.com/vansima/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository with an in-process map.
// It backs local development and tests where Redis is not available.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

// NewCartRepository creates an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string]*domain.Cart),
	}
}

// Get retrieves a cart by owner ID.
func (r *CartRepository) Get(_ context.Context, ownerID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[ownerID]
	if !ok {
		return nil, apperrors.NotFound("cart", ownerID)
	}

	// Return a copy so callers cannot mutate the stored cart.
	cp := *cart
	cp.Items = append([]domain.Item(nil), cart.Items...)
	return &cp, nil
}

// Save stores a cart, overwriting any existing cart for the owner.
func (r *CartRepository) Save(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *cart
	cp.Items = append([]domain.Item(nil), cart.Items...)
	r.carts[cart.OwnerID] = &cp
	return nil
}

// Delete removes a cart by owner ID. Deleting a missing cart is a no-op.
func (r *CartRepository) Delete(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, ownerID)
	return nil
}
