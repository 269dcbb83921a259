package provider

import "context"

// LineItem is a single purchasable line in a checkout session, priced in
// minor currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
	Currency   string
}

// SessionInput holds the parameters for creating a hosted checkout session.
type SessionInput struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
}

// Session is a provider-hosted checkout session. The URL is where the buyer
// completes payment.
type Session struct {
	ID  string
	URL string
}

// IntentInput holds the parameters for creating a payment intent.
type IntentInput struct {
	Amount   int64
	Currency string
}

// Intent carries the client secret the browser needs to confirm payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// EventTypeCheckoutCompleted is the webhook event emitted when a hosted
// session finishes successfully.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// WebhookEvent is a payment notification whose signature has already been
// verified.
type WebhookEvent struct {
	ID            string
	Type          string
	SessionID     string
	CustomerEmail string
}

// Provider abstracts the payment provider behind the checkout gateway.
type Provider interface {
	// Name returns the provider name for logs and metrics.
	Name() string

	// CreateSession creates a hosted checkout session.
	CreateSession(ctx context.Context, input SessionInput) (*Session, error)

	// CreateIntent creates a payment intent for in-page card collection.
	CreateIntent(ctx context.Context, input IntentInput) (*Intent, error)

	// VerifyWebhook checks the signature header against the raw payload and,
	// only if genuine, parses the notification. The payload must be the
	// exact bytes received on the wire.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
