package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vansima/storefront/internal/domain"
	"github.com/vansima/storefront/internal/event"
	"github.com/vansima/storefront/internal/mailer"
	"github.com/vansima/storefront/internal/provider"
)

var (
	checkoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Total number of checkout session creation attempts",
		},
		[]string{"provider", "status"},
	)

	paymentIntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Total number of payment intent creation attempts",
		},
		[]string{"provider", "status"},
	)

	fulfillmentEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_emails_total",
			Help: "Total number of fulfillment email attempts",
		},
		[]string{"status"},
	)
)

// CheckoutConfig holds the gateway's fixed product and redirect settings.
type CheckoutConfig struct {
	// SuccessURL and CancelURL are where the provider redirects the buyer.
	SuccessURL string
	CancelURL  string

	// Currency applies to every line item, e.g. "usd".
	Currency string

	// DefaultProductName and DefaultAmount (minor units) describe the fixed
	// product sold when a session request names no line items.
	DefaultProductName string
	DefaultAmount      int64

	// DefaultIntentAmount (minor units) applies when an intent request
	// carries no amount.
	DefaultIntentAmount int64

	// DownloadBaseURL is the public base for synthesized download links.
	DownloadBaseURL string
}

// SessionItemInput is one requested line item. Price and Qty normalize the
// same way cart input does.
type SessionItemInput struct {
	Name  string          `json:"name"`
	Price domain.Price    `json:"price"`
	Qty   domain.Quantity `json:"qty"`
}

// ProductInput is the single-product form of a session request. Storefront
// pages send either a bare name string or an object {name, price, qty};
// both decode without error, like the cart's lenient inputs.
type ProductInput struct {
	Name  string
	Price domain.Price
	Qty   domain.Quantity

	priced bool
}

// Priced reports whether the request carried an explicit unit price.
func (p ProductInput) Priced() bool { return p.priced }

func (p *ProductInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var name string
		if json.Unmarshal(data, &name) == nil {
			p.Name = name
		}
		return nil
	}
	var obj struct {
		Name  string          `json:"name"`
		Price *domain.Price   `json:"price"`
		Qty   domain.Quantity `json:"qty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	p.Name = obj.Name
	p.Qty = obj.Qty
	if obj.Price != nil {
		p.Price = *obj.Price
		p.priced = true
	}
	return nil
}

// CreateSessionInput is the body of a session request: either a single
// product or a list of line items. Both absent means the fixed product.
type CreateSessionInput struct {
	Product ProductInput       `json:"product"`
	Items   []SessionItemInput `json:"items"`
}

// CreateIntentInput is the body of a payment intent request.
type CreateIntentInput struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// FulfillmentResult reports what happened to a verified notification.
type FulfillmentResult struct {
	SessionID     string
	CustomerEmail string
	DownloadLink  string
	EmailSent     bool
	Skipped       bool
}

// CheckoutService implements the payment gateway's business logic.
type CheckoutService struct {
	provider provider.Provider
	mailer   mailer.Mailer
	producer *event.Producer
	logger   *slog.Logger
	cfg      CheckoutConfig
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(p provider.Provider, m mailer.Mailer, producer *event.Producer, logger *slog.Logger, cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{
		provider: p,
		mailer:   m,
		producer: producer,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateSession creates a hosted checkout session from the requested line
// items, falling back to the configured fixed product.
func (s *CheckoutService) CreateSession(ctx context.Context, input CreateSessionInput) (*provider.Session, error) {
	lineItems := s.buildLineItems(input)

	session, err := s.provider.CreateSession(ctx, provider.SessionInput{
		LineItems:  lineItems,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		checkoutSessionsTotal.WithLabelValues(s.provider.Name(), "error").Inc()
		return nil, err
	}
	checkoutSessionsTotal.WithLabelValues(s.provider.Name(), "success").Inc()

	var amount int64
	for _, li := range lineItems {
		amount += li.UnitAmount * int64(li.Quantity)
	}
	if err := s.producer.PublishCheckoutSessionCreated(ctx, event.CheckoutSessionCreatedData{
		SessionID: session.ID,
		Amount:    amount,
		Currency:  s.cfg.Currency,
		LineCount: len(lineItems),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.session-created event",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	return session, nil
}

// CreateIntent creates a payment intent, defaulting the amount and currency
// when the request leaves them out.
func (s *CheckoutService) CreateIntent(ctx context.Context, input CreateIntentInput) (*provider.Intent, error) {
	amount := input.Amount
	if amount <= 0 {
		amount = s.cfg.DefaultIntentAmount
	}
	currency := input.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	intent, err := s.provider.CreateIntent(ctx, provider.IntentInput{
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		paymentIntentsTotal.WithLabelValues(s.provider.Name(), "error").Inc()
		return nil, err
	}
	paymentIntentsTotal.WithLabelValues(s.provider.Name(), "success").Inc()

	return intent, nil
}

// VerifyWebhook delegates signature verification to the provider.
func (s *CheckoutService) VerifyWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	return s.provider.VerifyWebhook(payload, signature)
}

// Fulfill handles a verified notification. Completed checkouts get a
// download link mailed to the buyer; a failed send is logged and the order
// still counts as fulfilled, because the provider must not see an error and
// retry the charge flow.
func (s *CheckoutService) Fulfill(ctx context.Context, evt *provider.WebhookEvent) (*FulfillmentResult, error) {
	if evt.Type != provider.EventTypeCheckoutCompleted {
		s.logger.DebugContext(ctx, "ignoring webhook event",
			slog.String("event_id", evt.ID),
			slog.String("event_type", evt.Type),
		)
		return &FulfillmentResult{Skipped: true}, nil
	}

	link := s.downloadLink(evt.SessionID)
	result := &FulfillmentResult{
		SessionID:     evt.SessionID,
		CustomerEmail: evt.CustomerEmail,
		DownloadLink:  link,
	}

	if evt.CustomerEmail == "" {
		s.logger.WarnContext(ctx, "completed checkout carried no customer email",
			slog.String("session_id", evt.SessionID),
		)
	} else {
		email := mailer.Email{
			To:      evt.CustomerEmail,
			Subject: "Your download is ready",
			Text: fmt.Sprintf(
				"Thank you for your purchase!\n\nDownload your files here: %s\n\nThis link expires in 24 hours.",
				link,
			),
			HTML: fmt.Sprintf(
				`<p>Thank you for your purchase!</p><p><a href="%s">Download your files</a></p><p>This link expires in 24 hours.</p>`,
				link,
			),
		}

		if err := s.mailer.Send(ctx, email); err != nil {
			fulfillmentEmailsTotal.WithLabelValues("error").Inc()
			s.logger.ErrorContext(ctx, "failed to send fulfillment email",
				slog.String("session_id", evt.SessionID),
				slog.String("to", evt.CustomerEmail),
				slog.String("error", err.Error()),
			)
		} else {
			fulfillmentEmailsTotal.WithLabelValues("success").Inc()
			result.EmailSent = true
		}
	}

	if err := s.producer.PublishOrderFulfilled(ctx, event.OrderFulfilledData{
		SessionID:     evt.SessionID,
		CustomerEmail: evt.CustomerEmail,
		EmailSent:     result.EmailSent,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.fulfilled event",
			slog.String("session_id", evt.SessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout fulfilled",
		slog.String("session_id", evt.SessionID),
		slog.Bool("email_sent", result.EmailSent),
	)

	return result, nil
}

// buildLineItems maps the request body onto provider line items.
func (s *CheckoutService) buildLineItems(input CreateSessionInput) []provider.LineItem {
	if len(input.Items) > 0 {
		items := make([]provider.LineItem, len(input.Items))
		for i, it := range input.Items {
			name := it.Name
			if name == "" {
				name = s.cfg.DefaultProductName
			}
			items[i] = provider.LineItem{
				Name:       name,
				UnitAmount: domain.MinorUnits(float64(it.Price)),
				Quantity:   domain.ClampQty(int(it.Qty)),
				Currency:   s.cfg.Currency,
			}
		}
		return items
	}

	name := input.Product.Name
	if name == "" {
		name = s.cfg.DefaultProductName
	}
	unitAmount := s.cfg.DefaultAmount
	if input.Product.Priced() {
		unitAmount = domain.MinorUnits(float64(input.Product.Price))
	}
	return []provider.LineItem{{
		Name:       name,
		UnitAmount: unitAmount,
		Quantity:   domain.ClampQty(int(input.Product.Qty)),
		Currency:   s.cfg.Currency,
	}}
}

// downloadLink synthesizes the buyer's download URL. The token is random
// per fulfillment; expiry is enforced by the download host, not here.
func (s *CheckoutService) downloadLink(sessionID string) string {
	token := uuid.NewString()
	return fmt.Sprintf("%s/downloads/%s?token=%s", s.cfg.DownloadBaseURL, sessionID, token)
}
