package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vansima/storefront/internal/domain"
	pkgkafka "github.com/vansima/storefront/pkg/kafka"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated            = pkgkafka.Topic("cart", "updated")
	TopicCartCleared            = pkgkafka.Topic("cart", "cleared")
	TopicCheckoutSessionCreated = pkgkafka.Topic("checkout", "session-created")
	TopicOrderFulfilled         = pkgkafka.Topic("order", "fulfilled")
)

// Aggregate type constants.
const (
	AggregateTypeCart     = "cart"
	AggregateTypeCheckout = "checkout"
	AggregateTypeOrder    = "order"
)

// Source identifier for events originating from this service.
const Source = "storefront"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	OwnerID   string        `json:"owner_id"`
	Items     []domain.Item `json:"items"`
	ItemCount int           `json:"item_count"`
	Total     float64       `json:"total"`
	Currency  string        `json:"currency"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	OwnerID string `json:"owner_id"`
}

// CheckoutSessionCreatedData is the payload for a checkout.session-created event.
type CheckoutSessionCreatedData struct {
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	LineCount int    `json:"line_count"`
}

// OrderFulfilledData is the payload for an order.fulfilled event.
type OrderFulfilledData struct {
	SessionID     string `json:"session_id"`
	CustomerEmail string `json:"customer_email"`
	EmailSent     bool   `json:"email_sent"`
}

// Producer publishes storefront domain events to Kafka. A Producer built
// with a nil Kafka producer drops every event, which keeps event publishing
// optional in deployments without a broker.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events will actually reach a broker.
func (p *Producer) Enabled() bool {
	return p.kafka != nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		OwnerID:   cart.OwnerID,
		Items:     cart.Items,
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
		Currency:  cart.Currency,
	}
	return p.publish(ctx, TopicCartUpdated, cart.OwnerID, AggregateTypeCart, data)
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, ownerID string) error {
	data := CartClearedData{OwnerID: ownerID}
	return p.publish(ctx, TopicCartCleared, ownerID, AggregateTypeCart, data)
}

// PublishCheckoutSessionCreated publishes a checkout.session-created event.
func (p *Producer) PublishCheckoutSessionCreated(ctx context.Context, data CheckoutSessionCreatedData) error {
	return p.publish(ctx, TopicCheckoutSessionCreated, data.SessionID, AggregateTypeCheckout, data)
}

// PublishOrderFulfilled publishes an order.fulfilled event.
func (p *Producer) PublishOrderFulfilled(ctx context.Context, data OrderFulfilledData) error {
	return p.publish(ctx, TopicOrderFulfilled, data.SessionID, AggregateTypeOrder, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p.kafka == nil {
		p.logger.DebugContext(ctx, "event publishing disabled, dropping event",
			slog.String("topic", topic),
		)
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}
