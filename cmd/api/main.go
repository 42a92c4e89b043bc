package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/talaad-shop/api/internal/handlers"
	"github.com/talaad-shop/api/internal/payments"
	"github.com/talaad-shop/api/internal/platform/config"
	"github.com/talaad-shop/api/internal/platform/dedup"
	"github.com/talaad-shop/api/internal/platform/observability"
	"github.com/talaad-shop/api/internal/repositories/gormstore"
	"github.com/talaad-shop/api/internal/services"
	"github.com/talaad-shop/api/internal/sms"

	domain "github.com/talaad-shop/api/internal/domain"
)

const shutdownGrace = 10 * time.Second

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, err := gormstore.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open ledger database", zap.Error(err), zap.String("path", cfg.Database.Path))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("database close error", zap.Error(err))
		}
	}()

	events := observability.EventLogger(logger)

	dedupStore, closeDedup := newDedupStore(ctx, logger, cfg.Redis)
	defer closeDedup()

	provider, fallback := newProviders(logger, cfg.Gateway, events)

	notifier := newNotifier(logger, cfg.SMS, events)

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     store.Orders(),
		Products:   store.Products(),
		UnitOfWork: store,
		GiftRule: domain.FreeGiftRule{
			ProductID:   cfg.FreeGift.ProductID,
			MinSubtotal: cfg.FreeGift.MinSubtotal,
		},
		Logger: events,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	paymentService, err := services.NewPaymentService(services.PaymentServiceDeps{
		Orders:   store.Orders(),
		Payments: store.Payments(),
		Provider: provider,
		Fallback: fallback,
		Logger:   events,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment service", zap.Error(err))
	}

	webhookService, err := services.NewWebhookService(services.WebhookServiceDeps{
		Orders:         store.Orders(),
		Payments:       store.Payments(),
		UnitOfWork:     store,
		Secret:         cfg.Gateway.WebhookSecret,
		Notifier:       notifier,
		Dedup:          dedupStore,
		NotifyDedupTTL: cfg.Redis.NotifyDedupTTL,
		Logger:         events,
	})
	if err != nil {
		logger.Fatal("failed to initialise webhook service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: store.Products(),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	limiter := handlers.NewCheckoutRateLimiter(cfg.RateLimits.CheckoutPerMinute)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithReadinessCheck("database", store.Ping),
		)),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(orderService, limiter).Routes),
		handlers.WithPaymentRoutes(handlers.NewPaymentHandlers(paymentService, webhookService).Routes),
		handlers.WithProductRoutes(handlers.NewProductHandlers(catalogService).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.Bool("gatewayConfigured", cfg.Gateway.Configured()),
			zap.Bool("smsConfigured", cfg.SMS.Configured()),
			zap.Bool("redisEnabled", cfg.Redis.Enabled()),
		)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newDedupStore prefers Redis so the at-most-once notification guard holds
// across replicas; without a configured address it degrades to the
// process-local store.
func newDedupStore(ctx context.Context, logger *zap.Logger, cfg config.RedisConfig) (dedup.Store, func()) {
	if !cfg.Enabled() {
		logger.Info("redis not configured, using in-memory notification dedup")
		return dedup.NewMemoryStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory notification dedup", zap.Error(err))
		_ = client.Close()
		return dedup.NewMemoryStore(), func() {}
	}

	store, err := dedup.NewRedisStore(client)
	if err != nil {
		logger.Warn("redis dedup store unavailable, using in-memory guard", zap.Error(err))
		_ = client.Close()
		return dedup.NewMemoryStore(), func() {}
	}

	logger.Info("redis notification dedup enabled", zap.String("addr", cfg.Addr))
	return store, func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}
}

// newProviders returns the primary gateway provider and the fallback used
// when it fails. Without credentials the fallback serves both roles.
func newProviders(logger *zap.Logger, cfg config.GatewayConfig, events payments.Logger) (payments.Provider, payments.Provider) {
	fallback := payments.NewFallbackProvider(payments.WithFallbackLogger(events))

	if !cfg.Configured() {
		logger.Warn("payment gateway not configured, running in fallback mode")
		return fallback, fallback
	}

	provider, err := payments.NewPaysolProvider(payments.PaysolConfig{
		BaseURL:    cfg.BaseURL,
		MerchantID: cfg.MerchantID,
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		SuccessURL: cfg.SuccessURL,
		FailURL:    cfg.FailURL,
		CancelURL:  cfg.CancelURL,
		Timeout:    cfg.Timeout,
		Logger:     events,
	})
	if err != nil {
		logger.Warn("payment gateway initialisation failed, running in fallback mode", zap.Error(err))
		return fallback, fallback
	}
	return provider, fallback
}

// newNotifier returns nil when SMS credentials are absent; the webhook
// reconciler treats a nil notifier as notifications disabled.
func newNotifier(logger *zap.Logger, cfg config.SMSConfig, events func(ctx context.Context, event string, fields map[string]any)) services.Notifier {
	if !cfg.Configured() {
		logger.Info("sms provider not configured, notifications disabled")
		return nil
	}

	dispatcher, err := sms.NewDispatcher(sms.Config{
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		ClientID: cfg.ClientID,
		Sender:   cfg.Sender,
		Timeout:  cfg.Timeout,
		Logger:   events,
	})
	if err != nil {
		logger.Warn("sms dispatcher initialisation failed, notifications disabled", zap.Error(err))
		return nil
	}
	return smsNotifier{dispatcher: dispatcher}
}

// smsNotifier adapts the dispatcher to the narrower Notifier contract.
type smsNotifier struct {
	dispatcher *sms.Dispatcher
}

func (n smsNotifier) SendPaymentSuccess(ctx context.Context, phone, orderNo string) error {
	_, err := n.dispatcher.SendPaymentSuccess(ctx, phone, orderNo)
	return err
}
