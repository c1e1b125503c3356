package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/sunrise-backend/api/controllers"
	"github.com/angelmondragon/sunrise-backend/api/routes"
	"github.com/angelmondragon/sunrise-backend/internal/storefront"
	"github.com/angelmondragon/sunrise-backend/internal/webhooks/guard"
	squarewebhook "github.com/angelmondragon/sunrise-backend/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/sunrise-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/sunrise-backend/pkg/auth"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/db"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/migrate"
	"github.com/angelmondragon/sunrise-backend/pkg/redis"
)

const (
	serviceName     = "api"
	webhookGuardTTL = 72 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"serviceKind":     serviceName,
		"paymentProvider": cfg.FeatureFlags.PaymentProvider,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		return err
	}
	defer closeWith(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer closeWith(logg, "redis", redisClient.Close)

	sf, err := storefront.Build(ctx, storefront.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}

	signer, err := auth.NewCartSigner(cfg.CartSession)
	if err != nil {
		return err
	}

	deps := routes.Dependencies{
		Config: cfg,
		Logger: logg,
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Idempotency: redisClient,
		Gatherer:    prometheus.DefaultGatherer,
		CartSigner:  signer,
		Products:    sf.Products,
		Cart:        sf.Cart,
		Checkout:    sf.Checkout,
		Orders:      sf.Orders,
	}
	if err := wireWebhooks(&deps, sf, redisClient, logg); err != nil {
		return err
	}

	addr := ":" + listenPort(cfg)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "addr", addr), "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// wireWebhooks mounts a processor's webhook only when its client is configured.
func wireWebhooks(deps *routes.Dependencies, sf *storefront.Storefront, store *redis.Client, logg *logger.Logger) error {
	var err error
	if sf.Stripe != nil {
		deps.StripeClient = sf.Stripe
		if deps.StripeWebhookService, err = stripewebhook.NewService(stripewebhook.ServiceParams{Checkout: sf.Checkout, Logger: logg}); err != nil {
			return err
		}
		if deps.StripeWebhookGuard, err = guard.NewIdempotencyGuard(store, webhookGuardTTL, "stripe"); err != nil {
			return err
		}
	}
	if sf.Square != nil {
		deps.SquareClient = sf.Square
		if deps.SquareWebhookService, err = squarewebhook.NewService(squarewebhook.ServiceParams{Checkout: sf.Checkout, Logger: logg}); err != nil {
			return err
		}
		if deps.SquareWebhookGuard, err = guard.NewIdempotencyGuard(store, webhookGuardTTL, "square"); err != nil {
			return err
		}
	}
	return nil
}

// listenPort prefers the platform-assigned PORT over configuration.
func listenPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return cfg.App.Port
}

func closeWith(logg *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
