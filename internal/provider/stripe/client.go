package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vansima/storefront/internal/provider"
	apperrors "github.com/vansima/storefront/pkg/errors"
)

// DefaultBaseURL is the live Stripe API endpoint.
const DefaultBaseURL = "https://api.stripe.com"

// httpDoer is satisfied by both the plain and circuit-breaker clients from
// pkg/httpclient.
type httpDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds the Stripe client configuration.
type Config struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string

	// Tolerance bounds how old a webhook timestamp may be. Zero means the
	// default of 5 minutes.
	Tolerance time.Duration
}

// Client implements provider.Provider against the Stripe HTTP API.
type Client struct {
	http          httpDoer
	baseURL       string
	secretKey     string
	webhookSecret string
	tolerance     time.Duration
	logger        *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewClient creates a Stripe-backed payment provider.
func NewClient(doer httpDoer, cfg Config, logger *slog.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = 5 * time.Minute
	}

	return &Client{
		http:          doer,
		baseURL:       baseURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
		logger:        logger,
		now:           time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "stripe"
}

// CreateSession creates a hosted checkout session via POST /v1/checkout/sessions.
func (c *Client) CreateSession(ctx context.Context, input provider.SessionInput) (*provider.Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", input.SuccessURL)
	form.Set("cancel_url", input.CancelURL)

	for i, li := range input.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", li.Currency)
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Quantity))
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "checkout session created",
		slog.String("session_id", out.ID),
		slog.Int("line_items", len(input.LineItems)),
	)

	return &provider.Session{ID: out.ID, URL: out.URL}, nil
}

// CreateIntent creates a payment intent via POST /v1/payment_intents.
func (c *Client) CreateIntent(ctx context.Context, input provider.IntentInput) (*provider.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(input.Amount, 10))
	form.Set("currency", input.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")

	var out struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := c.post(ctx, "/v1/payment_intents", form, &out); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "payment intent created",
		slog.String("intent_id", out.ID),
		slog.Int64("amount", input.Amount),
	)

	return &provider.Intent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

// post sends a form-encoded request and decodes the JSON response into out.
// Non-2xx responses are mapped to upstream errors carrying Stripe's own
// error message.
func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create stripe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.Upstream("stripe", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Upstream("stripe", apiErrorMessage(body, resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode stripe response: %w", err)
	}

	return nil
}

// apiErrorMessage extracts the message from a Stripe error envelope,
// falling back to the HTTP status.
func apiErrorMessage(body []byte, status int) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return fmt.Sprintf("unexpected status %d", status)
}
