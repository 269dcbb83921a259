package http

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// ownerIDKey is the context key for the cart owner ID.
const ownerIDKey contextKey = "owner_id"

// OwnerIDFromHeader is middleware that reads the X-User-ID header (injected
// by the edge after session validation) and stores it in the request context
// as the cart owner. If the header is absent the request is rejected with
// 401 Unauthorized.
func OwnerIDFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-ID")
		if uid == "" {
			writeJSON(w, http.StatusUnauthorized, response{
				Error: &errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
			})
			return
		}
		ctx := context.WithValue(r.Context(), ownerIDKey, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerIDFromContext extracts the cart owner ID from the request context.
// Returns the owner ID and true if present, or empty string and false otherwise.
func ownerIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ownerIDKey).(string)
	return uid, ok && uid != ""
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				writeJSON(w, http.StatusUnsupportedMediaType, response{
					Error: &errorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
