package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/silverline-jewels/storefront-api/internal/handlers"
	"github.com/silverline-jewels/storefront-api/internal/payments"
	"github.com/silverline-jewels/storefront-api/internal/platform/auth"
	"github.com/silverline-jewels/storefront-api/internal/platform/config"
	pfirestore "github.com/silverline-jewels/storefront-api/internal/platform/firestore"
	"github.com/silverline-jewels/storefront-api/internal/platform/jobs"
	"github.com/silverline-jewels/storefront-api/internal/platform/observability"
	"github.com/silverline-jewels/storefront-api/internal/platform/secrets"
	platformstorage "github.com/silverline-jewels/storefront-api/internal/platform/storage"
	firestoreRepo "github.com/silverline-jewels/storefront-api/internal/repositories/firestore"
	"github.com/silverline-jewels/storefront-api/internal/services"
)

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

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repository registry", zap.Error(err))
	}

	var orderEvents services.OrderEventPublisher
	var orderTopic *pubsub.Topic
	if topicName := strings.TrimSpace(cfg.Events.OrderTopic); topicName != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		orderTopic = pubsubClient.Topic(topicName)
		publisher, err := jobs.NewPubSubOrderEventPublisher(orderTopic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		orderEvents = publisher
	} else {
		logger.Warn("order event topic not configured; order events disabled")
	}

	mediaResolver, err := newMediaResolver(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to initialise media resolver", zap.Error(err))
	}
	if mediaResolver == nil {
		logger.Warn("media signer not configured; image paths will pass through unsigned")
	}

	paymentManager, err := newPaymentManager(cfg.Gateway)
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}
	if strings.TrimSpace(cfg.Gateway.RazorpayKeyID) == "" || strings.TrimSpace(cfg.Gateway.RazorpayKeySecret) == "" {
		logger.Warn("razorpay credentials not configured; gateway sessions will fail and signature checks fail closed")
	}

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Secret:     cfg.Auth.TokenSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal("failed to initialise token issuer", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(tokenIssuer)

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:    registry.Orders(),
		Addresses: registry.Addresses(),
		Counters:  registry.Counters(),
		Payments:  paymentManager,
		Events:    orderEvents,
		Clock:     time.Now,
		Logger:    zapEventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: registry.Orders(),
		Clock:  time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	catalogDeps := services.CatalogServiceDeps{
		Categories: registry.Categories(),
		Products:   registry.Products(),
		Logger:     zapEventLogger(logger.Named("catalog")),
	}
	if mediaResolver != nil {
		catalogDeps.Media = mediaResolver
	}
	catalogService, err := services.NewCatalogService(catalogDeps)
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	addressService, err := services.NewAddressService(services.AddressServiceDeps{
		Addresses: registry.Addresses(),
		Clock:     time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise address service", zap.Error(err))
	}
	userService, err := services.NewUserService(services.UserServiceDeps{
		Users: registry.Users(),
		Clock: time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise user service", zap.Error(err))
	}

	authHandlers := handlers.NewAuthHandlers(userService, tokenIssuer)
	catalogHandlers := handlers.NewCatalogHandlers(catalogService)
	addressHandlers := handlers.NewAddressHandlers(authenticator, addressService)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, checkoutService)
	orderHandlers := handlers.NewOrderHandlers(authenticator, orderService)
	profileHandlers := handlers.NewProfileHandlers(authenticator, userService)
	healthHandlers := handlers.NewHealthHandlers(registry.Health().Ping)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAuthRoutes(authHandlers.Routes),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithAddressRoutes(addressHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithProfileRoutes(profileHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if orderTopic != nil {
		orderTopic.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	defaultProject := strings.TrimSpace(os.Getenv("API_SECRET_DEFAULT_PROJECT_ID"))
	if defaultProject == "" {
		defaultProject = strings.TrimSpace(os.Getenv("API_FIRESTORE_PROJECT_ID"))
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if fallbackPath := strings.TrimSpace(os.Getenv("API_SECRET_FALLBACK_FILE")); fallbackPath != "" {
		opts = append(opts, secrets.WithFallbackFile(fallbackPath))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func newMediaResolver(cfg config.StorageConfig) (*platformstorage.MediaResolver, error) {
	bucket := strings.TrimSpace(cfg.MediaBucket)
	keyFile := strings.TrimSpace(cfg.SignerKeyFile)
	if bucket == "" || keyFile == "" {
		return nil, nil
	}
	signer, err := platformstorage.NewServiceAccountSignerFromFile(keyFile)
	if err != nil {
		return nil, err
	}
	return platformstorage.NewMediaResolver(signer, bucket, platformstorage.WithURLTTL(cfg.SignedURLTTL))
}

// newPaymentManager always registers the razorpay provider, credentials or
// not: missing key and secret default to empty strings, gateway sessions
// then fail upstream, and every signature check fails closed. Stripe is
// registered only when its key is present.
func newPaymentManager(cfg config.GatewayConfig) (*payments.Manager, error) {
	razorpay, err := payments.NewRazorpayProvider(payments.RazorpayProviderConfig{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	providers := map[string]payments.Provider{
		"razorpay": razorpay,
	}
	if strings.TrimSpace(cfg.StripeAPIKey) != "" {
		stripe, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:        cfg.StripeAPIKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		})
		if err != nil {
			return nil, err
		}
		providers["stripe"] = stripe
	}

	opts := []payments.ManagerOption{}
	if provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider != "" {
		if _, ok := providers[provider]; ok {
			opts = append(opts, payments.WithDefaultProvider(provider))
		}
	}
	return payments.NewManager(providers, opts...)
}

func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}
