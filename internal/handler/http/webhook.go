package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/vansima/storefront/internal/service"
)

// maxWebhookBody bounds how much of a notification payload is read.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment provider notifications.
type WebhookHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(svc *service.CheckoutService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		logger:  logger,
	}
}

// Handle handles POST /webhook. The signature covers the exact payload
// bytes, so the body must reach verification untouched. A bad signature is
// a plain-text 400; once the event verifies, the provider always gets a 200
// so it never retries a charge we already saw, even if fulfillment stumbled.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read webhook body",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Webhook Error: unable to read request body", http.StatusBadRequest)
		return
	}

	event, err := h.service.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.service.Fulfill(r.Context(), event); err != nil {
		// The event is genuine; acknowledge it regardless so the provider
		// does not retry.
		h.logger.ErrorContext(r.Context(), "fulfillment failed",
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
	}

	w.WriteHeader(http.StatusOK)
}
