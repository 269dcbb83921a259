package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vansima/storefront/internal/binding"
	"github.com/vansima/storefront/internal/domain"
)

// TriggerHandler exposes trigger binding over HTTP so storefront pages can
// register their add-to-cart controls and fire them.
type TriggerHandler struct {
	binder *binding.Binder
	logger *slog.Logger
}

// NewTriggerHandler creates a new trigger HTTP handler.
func NewTriggerHandler(binder *binding.Binder, logger *slog.Logger) *TriggerHandler {
	return &TriggerHandler{
		binder: binder,
		logger: logger,
	}
}

// TriggerResponse reports a trigger's registration state.
type TriggerResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Bound bool   `json:"bound"`
}

// ActivationResponse is the outcome of firing a trigger.
type ActivationResponse struct {
	Cart          *domain.Cart `json:"cart"`
	Feedback      string       `json:"feedback"`
	RevertAfterMS int64        `json:"revert_after_ms"`
}

// Register handles POST /api/v1/triggers. Registering an already-bound id
// is a no-op and still succeeds.
func (t *TriggerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var trigger binding.Trigger
	if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	bound, err := t.binder.Bind(trigger)
	if err != nil {
		writeAppError(w, r, t.logger, err)
		return
	}

	label, _ := t.binder.Label(trigger.ID)
	status := http.StatusOK
	if bound {
		status = http.StatusCreated
	}
	writeJSON(w, status, response{Data: TriggerResponse{
		ID:    trigger.ID,
		Label: label,
		Bound: true,
	}})
}

// Activate handles POST /api/v1/triggers/{triggerId}/activate.
func (t *TriggerHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "X-User-ID header is required"},
		})
		return
	}

	triggerID := chi.URLParam(r, "triggerId")
	activation, err := t.binder.Activate(r.Context(), ownerID, triggerID)
	if err != nil {
		writeAppError(w, r, t.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: ActivationResponse{
		Cart:          activation.Cart,
		Feedback:      activation.Feedback,
		RevertAfterMS: activation.RevertAfter.Milliseconds(),
	}})
}

// Show handles GET /api/v1/triggers/{triggerId}, exposing the current label
// so pages can render feedback state.
func (t *TriggerHandler) Show(w http.ResponseWriter, r *http.Request) {
	triggerID := chi.URLParam(r, "triggerId")

	label, ok := t.binder.Label(triggerID)
	if !ok {
		writeJSON(w, http.StatusNotFound, response{
			Error: &errorResponse{Code: "NOT_FOUND", Message: "trigger not found"},
		})
		return
	}

	writeJSON(w, http.StatusOK, response{Data: TriggerResponse{
		ID:    triggerID,
		Label: label,
		Bound: true,
	}})
}
