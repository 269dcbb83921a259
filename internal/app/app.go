package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vansima/storefront/internal/binding"
	"github.com/vansima/storefront/internal/config"
	"github.com/vansima/storefront/internal/event"
	handler "github.com/vansima/storefront/internal/handler/http"
	"github.com/vansima/storefront/internal/mailer"
	mockmailer "github.com/vansima/storefront/internal/mailer/mock"
	sgmailer "github.com/vansima/storefront/internal/mailer/sendgrid"
	"github.com/vansima/storefront/internal/provider"
	mockprovider "github.com/vansima/storefront/internal/provider/mock"
	"github.com/vansima/storefront/internal/provider/stripe"
	redisrepo "github.com/vansima/storefront/internal/repository/redis"
	"github.com/vansima/storefront/internal/service"
	"github.com/vansima/storefront/pkg/health"
	"github.com/vansima/storefront/pkg/httpclient"
	pkgkafka "github.com/vansima/storefront/pkg/kafka"
	"github.com/vansima/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize Redis client.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Kafka producer, only when brokers are configured. An absent producer
	// disables event publishing rather than failing startup.
	var producer *pkgkafka.Producer
	if cfg.EventsEnabled() {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		producer = pkgkafka.NewProducer(kafkaCfg, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("no kafka brokers configured, event publishing disabled")
	}
	eventProducer := event.NewProducer(producer, logger)

	// Tracing.
	tracingCfg := tracing.DefaultConfig("storefront")
	tracingCfg.Environment = cfg.Environment
	if cfg.OTELEndpoint != "" {
		tracingCfg.Enabled = true
		tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
		tracingCfg.SampleRate = cfg.OTELSampleRate
	}
	tracingShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Cart.
	cartTTL := time.Duration(cfg.CartTTL) * time.Hour
	repo := redisrepo.NewCartRepository(rdb, cartTTL, logger)
	cartService := service.NewCartService(repo, eventProducer, logger, cartTTL, cfg.Currency)

	// Payment provider and mail relay, or their in-process mocks in dev.
	var paymentProvider provider.Provider
	var mail mailer.Mailer
	if cfg.MockProviders {
		paymentProvider = mockprovider.NewProvider()
		mail = mockmailer.NewMailer(logger)
		logger.Warn("using mock payment provider and mailer")
	} else {
		breaker := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("stripe"),
			logger,
		)
		paymentProvider = stripe.NewClient(breaker, stripe.Config{
			BaseURL:       cfg.StripeAPIBaseURL,
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		}, logger)
		mail = sgmailer.NewMailer(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr, logger)
	}

	checkoutService := service.NewCheckoutService(paymentProvider, mail, eventProducer, logger, service.CheckoutConfig{
		SuccessURL:          cfg.CheckoutSuccessURL,
		CancelURL:           cfg.CheckoutCancelURL,
		Currency:            cfg.Currency,
		DefaultProductName:  cfg.DefaultProductName,
		DefaultAmount:       cfg.DefaultAmount,
		DefaultIntentAmount: cfg.DefaultIntentAmt,
		DownloadBaseURL:     cfg.DownloadBaseURL,
	})

	binder := binding.NewBinder(cartService, logger, cfg.DefaultProductName)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	// HTTP router.
	router := handler.NewRouter(cartService, checkoutService, binder, healthHandler, logger, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
