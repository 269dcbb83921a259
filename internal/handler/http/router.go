package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vansima/storefront/internal/binding"
	"github.com/vansima/storefront/internal/service"
	"github.com/vansima/storefront/pkg/health"
	"github.com/vansima/storefront/pkg/middleware"
)

// NewRouter creates a chi router with every storefront route registered:
// the cart API, trigger binding, the legacy checkout gateway routes, the
// payment webhook, and static page assets.
func NewRouter(
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	binder *binding.Binder,
	healthHandler *health.Handler,
	logger *slog.Logger,
	staticDir string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Legacy gateway routes, shapes owned by the storefront pages.
	checkoutHandler := NewCheckoutHandler(checkoutService, logger)
	webhookHandler := NewWebhookHandler(checkoutService, logger)

	r.Post("/create-checkout-session", checkoutHandler.CreateCheckoutSession)
	r.Post("/create-payment-intent", checkoutHandler.CreatePaymentIntent)
	r.Post("/webhook", webhookHandler.Handle)

	// Cart API endpoints
	cartHandler := NewCartHandler(cartService, logger)

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(OwnerIDFromHeader)

		r.Get("/", cartHandler.GetCart)
		r.Get("/view", cartHandler.ViewCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{itemId}", cartHandler.SetQuantity)
		r.Delete("/items/{itemId}", cartHandler.RemoveItem)
	})

	// Trigger binding endpoints
	triggerHandler := NewTriggerHandler(binder, logger)

	r.Route("/api/v1/triggers", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", triggerHandler.Register)
		r.Get("/{triggerId}", triggerHandler.Show)

		r.With(OwnerIDFromHeader).Post("/{triggerId}/activate", triggerHandler.Activate)
	})

	// Storefront page assets.
	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	return r
}
