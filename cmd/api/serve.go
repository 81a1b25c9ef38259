package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/adapters"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/config"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/controller"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/core"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/logging"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/metrics"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/ports"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/render"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/repository"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/service"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/telemetry"
)

const serviceName = "storefront-service"

func serveCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, shutdownTimeout)
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "time allowed for in-flight requests on shutdown")
	return cmd
}

func runServe(ctx context.Context, shutdownTimeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	warnings, err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, w := range warnings {
		logger.Warn(w)
	}
	logger.Info("configuration loaded", zap.Any("config", cfg.Redacted()))

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	m := metrics.New()

	// Optional backends. Interfaces stay nil when a backend is not configured
	// so the handlers skip the matching side effect.
	var orders ports.IOrderRepository
	if cfg.DatabaseEnabled() {
		pool, err := config.InitPostgresPool(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()
		orders = repository.NewOrderRepository(pool)
	}

	var deduper ports.IEventDeduper
	if cfg.RedisURL != "" {
		client, err := config.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer client.Close()
		deduper = repository.NewRedisEventDeduper(client)
	}

	var publisher ports.IEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := adapters.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn("kafka writer close failed", zap.Error(err))
			}
		}()
		publisher = kp
	}

	var transport ports.IEmailTransport
	switch {
	case cfg.EmailMode == config.EmailModeLog:
		transport = adapters.NewLogTransport(logger)
	case cfg.EmailEnabled():
		transport = adapters.NewSendGridTransport(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	}

	providers := core.NewProviderRegistry()
	providers.Register(adapters.NewStripeAdapter(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeWebhookTolerance))

	dispatcher := service.NewWebhookDispatcher(cfg.WebhookHandlerTimeout, logger, m)
	service.NewPaymentEventHandlers(orders, deduper, publisher, cfg.WebhookDedupeTTL, logger, m).Register(dispatcher)

	paymentService := service.NewPaymentService(providers, dispatcher, service.PaymentServiceConfig{
		BaseURL:         cfg.BaseURL,
		DefaultCurrency: cfg.DefaultCurrency,
		GatewayTimeout:  cfg.GatewayTimeout,
	}, logger, m)

	renderer, err := render.New(cfg.StoreName, cfg.BaseURL, cfg.EmailSignatureHTML)
	if err != nil {
		return err
	}
	notificationService := service.NewNotificationService(renderer, transport, cfg.AdminEmails, cfg.EmailTimeout, logger, m)

	router := controller.NewRouter(
		controller.NewPaymentController(paymentService, model.PaymentProvider(cfg.DefaultProvider), logger),
		controller.NewNotificationController(notificationService),
		m.Handler(),
	)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Port), zap.Strings("providers", providers.Names()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
