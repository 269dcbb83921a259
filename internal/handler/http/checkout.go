package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vansima/storefront/internal/service"
	apperrors "github.com/vansima/storefront/pkg/errors"
)

// CheckoutHandler handles the payment gateway routes. These keep the flat
// request and response shapes the storefront pages already speak, so they
// sit outside the /api/v1 envelope.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateCheckoutSession handles POST /create-checkout-session.
// Responds {"url": ...} on success, {"error": ...} on provider failure.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var input service.CreateSessionInput
	if err := decodeLenient(r, &input); err != nil {
		h.writeFlatError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.service.CreateSession(r.Context(), input)
	if err != nil {
		h.writeProviderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": session.URL})
}

// CreatePaymentIntent handles POST /create-payment-intent.
// Responds {"clientSecret": ...} on success.
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var input service.CreateIntentInput
	if err := decodeLenient(r, &input); err != nil {
		h.writeFlatError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	intent, err := h.service.CreateIntent(r.Context(), input)
	if err != nil {
		h.writeProviderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": intent.ClientSecret})
}

// writeProviderError reports a failed provider call in the flat legacy
// shape, carrying the provider's own message through.
func (h *CheckoutHandler) writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	h.logger.ErrorContext(r.Context(), "checkout request failed",
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
	)

	h.writeFlatError(w, r, status, message)
}

func (h *CheckoutHandler) writeFlatError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeLenient parses an optional JSON body. An empty body is the zero
// input; anything present must parse.
func decodeLenient(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
