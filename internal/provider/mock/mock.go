package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vansima/storefront/internal/provider"
)

// Provider is a mock payment provider that always succeeds.
// It is intended for development and testing purposes.
type Provider struct{}

// NewProvider creates a new mock payment provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateSession simulates creating a hosted checkout session.
func (p *Provider) CreateSession(_ context.Context, _ provider.SessionInput) (*provider.Session, error) {
	// Simulate a small processing delay.
	time.Sleep(50 * time.Millisecond)

	id := "mock_cs_" + uuid.New().String()
	return &provider.Session{
		ID:  id,
		URL: "https://checkout.mock.invalid/pay/" + id,
	}, nil
}

// CreateIntent simulates creating a payment intent.
func (p *Provider) CreateIntent(_ context.Context, _ provider.IntentInput) (*provider.Intent, error) {
	// Simulate a small processing delay.
	time.Sleep(50 * time.Millisecond)

	id := "mock_pi_" + uuid.New().String()
	return &provider.Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String(),
	}, nil
}

// VerifyWebhook skips signature verification and parses the payload as a
// notification. Never use outside development.
func (p *Provider) VerifyWebhook(payload []byte, _ string) (*provider.WebhookEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID              string `json:"id"`
				CustomerDetails struct {
					Email string `json:"email"`
				} `json:"customer_details"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	return &provider.WebhookEvent{
		ID:            raw.ID,
		Type:          raw.Type,
		SessionID:     raw.Data.Object.ID,
		CustomerEmail: raw.Data.Object.CustomerDetails.Email,
	}, nil
}
