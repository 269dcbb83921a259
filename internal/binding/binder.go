// Package binding registers storefront add-to-cart triggers and activates
// them against the cart. It replaces per-page button wiring with explicit
// server-side bookkeeping: a trigger binds once, no matter how often a page
// re-registers it.
package binding

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vansima/storefront/internal/domain"
	"github.com/vansima/storefront/internal/service"
	apperrors "github.com/vansima/storefront/pkg/errors"
)

// ActivatedFeedback is the transient label shown after a trigger fires.
const ActivatedFeedback = "Added ✓"

// DefaultFeedbackTTL is how long the feedback label sticks before the
// trigger reverts to its original label.
const DefaultFeedbackTTL = time.Second

// ItemSpec carries the raw item fields attached to a trigger or its
// enclosing product container. Values are free-form page strings and are
// normalized at activation time.
type ItemSpec struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Qty    string `json:"qty"`
	Image  string `json:"image"`
}

// Trigger is an add-to-cart control on a storefront page.
type Trigger struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Data      ItemSpec `json:"data"`
	Container ItemSpec `json:"container"`
}

// Activation is the outcome of firing a trigger.
type Activation struct {
	Cart        *domain.Cart  `json:"cart"`
	Feedback    string        `json:"feedback"`
	RevertAfter time.Duration `json:"revert_after"`
}

// Binder tracks bound triggers and fires them into the cart service.
type Binder struct {
	cart        *service.CartService
	logger      *slog.Logger
	defaultName string
	feedbackTTL time.Duration

	mu       sync.Mutex
	triggers map[string]*boundTrigger
}

type boundTrigger struct {
	Trigger
	current string
	revert  *time.Timer
}

// NewBinder creates a binder. defaultName is the product name used when
// neither the trigger nor its container carries one.
func NewBinder(cart *service.CartService, logger *slog.Logger, defaultName string) *Binder {
	return &Binder{
		cart:        cart,
		logger:      logger,
		defaultName: defaultName,
		feedbackTTL: DefaultFeedbackTTL,
		triggers:    make(map[string]*boundTrigger),
	}
}

// WithFeedbackTTL overrides how long activation feedback lasts.
func (b *Binder) WithFeedbackTTL(ttl time.Duration) *Binder {
	b.feedbackTTL = ttl
	return b
}

// Bind registers a trigger. Binding is idempotent by trigger id: a trigger
// already in the bound set is left untouched and Bind reports false.
func (b *Binder) Bind(t Trigger) (bool, error) {
	if t.ID == "" {
		return false, apperrors.InvalidInput("trigger id is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.triggers[t.ID]; ok {
		return false, nil
	}

	b.triggers[t.ID] = &boundTrigger{Trigger: t, current: t.Label}
	b.logger.Debug("trigger bound",
		slog.String("trigger_id", t.ID),
		slog.String("label", t.Label),
	)
	return true, nil
}

// Label returns the trigger's current display label, which is the feedback
// text for a moment after activation.
func (b *Binder) Label(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.triggers[id]
	if !ok {
		return "", false
	}
	return t.current, true
}

// Bound reports whether a trigger id is in the bound set.
func (b *Binder) Bound(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.triggers[id]
	return ok
}

// Activate fires a bound trigger for the given cart owner. Item fields
// resolve trigger data first, then the enclosing container, then the
// default product name; price and quantity normalize like any cart input.
func (b *Binder) Activate(ctx context.Context, ownerID, triggerID string) (*Activation, error) {
	b.mu.Lock()
	t, ok := b.triggers[triggerID]
	if !ok {
		b.mu.Unlock()
		return nil, apperrors.NotFound("trigger", triggerID)
	}
	input := b.resolveItem(t)
	b.mu.Unlock()

	cart, err := b.cart.AddItem(ctx, ownerID, input)
	if err != nil {
		return nil, err
	}

	b.showFeedback(t)

	b.logger.InfoContext(ctx, "trigger activated",
		slog.String("trigger_id", triggerID),
		slog.String("owner_id", ownerID),
		slog.String("item_id", input.ID),
	)

	return &Activation{
		Cart:        cart,
		Feedback:    ActivatedFeedback,
		RevertAfter: b.feedbackTTL,
	}, nil
}

// resolveItem builds the cart input through the priority chain.
// Caller holds the lock.
func (b *Binder) resolveItem(t *boundTrigger) service.AddItemInput {
	id := t.Data.ItemID
	if id == "" {
		id = t.Container.ItemID
	}

	name := t.Data.Name
	if name == "" {
		name = t.Container.Name
	}
	if name == "" {
		name = b.defaultName
	}

	rawPrice := t.Data.Price
	if rawPrice == "" {
		rawPrice = t.Container.Price
	}

	rawQty := t.Data.Qty
	if rawQty == "" {
		rawQty = t.Container.Qty
	}

	image := t.Data.Image
	if image == "" {
		image = t.Container.Image
	}

	return service.AddItemInput{
		ID:    id,
		Name:  name,
		Price: domain.Price(domain.ParsePrice(rawPrice)),
		Qty:   domain.Quantity(domain.ParseQty(rawQty)),
		Image: image,
	}
}

// showFeedback swaps the trigger label to the feedback text and schedules
// the revert to the original label.
func (b *Binder) showFeedback(t *boundTrigger) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t.current = ActivatedFeedback
	if t.revert != nil {
		t.revert.Stop()
	}
	t.revert = time.AfterFunc(b.feedbackTTL, func() {
		b.mu.Lock()
		t.current = t.Label
		b.mu.Unlock()
	})
}
