package config

import (
	"fmt"
	"strings"

	pkgconfig "github.com/vansima/storefront/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"4242"`

	// Static front-end assets. Empty disables static serving.
	StaticDir string `env:"STATIC_DIR" envDefault:""`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Kafka. Empty disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"" envSeparator:","`

	// MockProviders swaps the payment provider and mail relay for in-process
	// mocks. Development only.
	MockProviders bool `env:"USE_MOCK_PROVIDERS" envDefault:"false"`

	// Payment provider
	StripeAPIBaseURL    string `env:"STRIPE_API_BASE_URL" envDefault:"https://api.stripe.com"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`

	// Checkout
	CheckoutSuccessURL string `env:"CHECKOUT_SUCCESS_URL" envDefault:"https://vansima.us/success.html"`
	CheckoutCancelURL  string `env:"CHECKOUT_CANCEL_URL" envDefault:"https://vansima.us/cancel.html"`
	Currency           string `env:"CURRENCY" envDefault:"usd"`
	DefaultProductName string `env:"DEFAULT_PRODUCT_NAME" envDefault:"Vansima Product"`
	DefaultAmount      int64  `env:"DEFAULT_AMOUNT" envDefault:"2998"`
	DefaultIntentAmt   int64  `env:"DEFAULT_INTENT_AMOUNT" envDefault:"3999"`

	// Fulfillment
	DownloadBaseURL string `env:"DOWNLOAD_BASE_URL" envDefault:"https://vansima.us"`
	SendGridAPIKey  string `env:"SENDGRID_API_KEY,required"`
	EmailFromName   string `env:"EMAIL_FROM_NAME" envDefault:"Vansima"`
	EmailFromAddr   string `env:"EMAIL_FROM_ADDR" envDefault:"noreply@vansima.us"`

	// OpenTelemetry
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"0.1"`
}

// Load reads configuration from environment variables. Missing required
// secrets (provider keys, mail API key) fail here, before the server starts.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EventsEnabled reports whether domain events should be published.
func (c *Config) EventsEnabled() bool {
	for _, b := range c.KafkaBrokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CartTTL < 1 {
		return fmt.Errorf("invalid cart TTL: %d", c.CartTTL)
	}
	if c.DefaultAmount < 1 || c.DefaultIntentAmt < 1 {
		return fmt.Errorf("default amounts must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL sample rate: %f", c.OTELSampleRate)
	}
	return nil
}
