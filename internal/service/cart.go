package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vansima/storefront/internal/domain"
	"github.com/vansima/storefront/internal/event"
	"github.com/vansima/storefront/internal/repository"
	apperrors "github.com/vansima/storefront/pkg/errors"
)

// AddItemInput holds the parameters for adding an item to the cart. Price
// and Qty use the coercion types so noisy values from storefront pages
// normalize instead of failing the request.
type AddItemInput struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price domain.Price    `json:"price"`
	Qty   domain.Quantity `json:"qty"`
	Image string          `json:"image"`
}

// CartView is the render model for a cart, mirroring what storefront pages
// display: the line items, a badge count, and a formatted total.
type CartView struct {
	Items          []domain.Item `json:"items"`
	ItemCount      int           `json:"item_count"`
	Total          float64       `json:"total"`
	FormattedTotal string        `json:"formatted_total"`
	Empty          bool          `json:"empty"`
	Message        string        `json:"message,omitempty"`
}

// EmptyCartMessage is shown in place of line items when the cart has none.
const EmptyCartMessage = "Your cart is empty"

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	producer *event.Producer
	logger   *slog.Logger
	cartTTL  time.Duration
	currency string
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, producer *event.Producer, logger *slog.Logger, cartTTL time.Duration, currency string) *CartService {
	return &CartService{
		repo:     repo,
		producer: producer,
		logger:   logger,
		cartTTL:  cartTTL,
		currency: currency,
	}
}

// GetCart retrieves the cart for an owner. If no cart exists (or the stored
// payload was corrupt), returns a fresh empty cart.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner id is required")
	}

	cart, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(ownerID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddItem adds an item to the owner's cart. An item with the same id merges
// by increasing quantity only; the name and price already in the cart win.
// Items without an id get a generated one and always append.
func (s *CartService) AddItem(ctx context.Context, ownerID string, input AddItemInput) (*domain.Cart, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner id is required")
	}

	item := domain.Item{
		ID:    input.ID,
		Name:  input.Name,
		Price: float64(input.Price),
		Qty:   domain.ClampQty(int(input.Qty)),
		Image: input.Image,
	}
	if item.Price < 0 {
		item.Price = 0
	}
	if item.ID == "" {
		item.ID = domain.NewItemID()
	}

	cart, err := s.getOrCreateCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if i := cart.FindItem(item.ID); i >= 0 {
		cart.Items[i].Qty += item.Qty
	} else {
		cart.Items = append(cart.Items, item)
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("owner_id", ownerID),
		slog.String("item_id", item.ID),
		slog.Int("qty", item.Qty),
	)

	return cart, nil
}

// SetQuantity sets the quantity of an item, clamping to a minimum of 1.
// An id that is not in the cart is a silent no-op.
func (s *CartService) SetQuantity(ctx context.Context, ownerID, itemID string, qty int) (*domain.Cart, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner id is required")
	}

	cart, err := s.getOrCreateCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	i := cart.FindItem(itemID)
	if i < 0 {
		return cart, nil
	}

	cart.Items[i].Qty = domain.ClampQty(qty)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity set",
		slog.String("owner_id", ownerID),
		slog.String("item_id", itemID),
		slog.Int("qty", cart.Items[i].Qty),
	)

	return cart, nil
}

// RemoveItem removes an item from the cart. An id that is not in the cart
// is a silent no-op.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, itemID string) (*domain.Cart, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner id is required")
	}

	cart, err := s.getOrCreateCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	i := cart.FindItem(itemID)
	if i < 0 {
		return cart, nil
	}

	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("owner_id", ownerID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}

// ClearCart removes all items from the owner's cart.
func (s *CartService) ClearCart(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return apperrors.InvalidInput("owner id is required")
	}

	if err := s.repo.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, ownerID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("owner_id", ownerID),
	)

	return nil
}

// View builds the render model for the owner's cart.
func (s *CartService) View(ctx context.Context, ownerID string) (*CartView, error) {
	cart, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	view := &CartView{
		Items:          cart.Items,
		ItemCount:      cart.ItemCount(),
		Total:          cart.Total(),
		FormattedTotal: domain.FormatTotal(cart.Total()),
	}
	if len(view.Items) == 0 {
		view.Items = []domain.Item{}
		view.Empty = true
		view.Message = EmptyCartMessage
	}

	return view, nil
}

// save persists the cart with a refreshed TTL window and publishes
// cart.updated. Publish failures are logged, never surfaced.
func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.cartTTL)

	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("owner_id", cart.OwnerID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// getOrCreateCart retrieves the cart for an owner, creating an empty one if
// it does not exist.
func (s *CartService) getOrCreateCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(ownerID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// newEmptyCart creates a new empty cart for the given owner.
func (s *CartService) newEmptyCart(ownerID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Items:     []domain.Item{},
		Currency:  s.currency,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cartTTL),
	}
}
