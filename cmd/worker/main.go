package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/sunrise-backend/internal/eventing/worker"
	"github.com/angelmondragon/sunrise-backend/internal/notifications"
	"github.com/angelmondragon/sunrise-backend/internal/reporting"
	"github.com/angelmondragon/sunrise-backend/pkg/bigquery"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/mail"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/sunrise-backend/pkg/pubsub"
	"github.com/angelmondragon/sunrise-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	bootCtx := context.Background()

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(bootCtx, cfg.GCP, cfg.PubSub, logg,
		pubsub.RequireSubscriptions(cfg.PubSub.NotificationsSubscription, cfg.PubSub.ReportingSubscription))
	if err != nil {
		logg.Error(bootCtx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(bootCtx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	factsTable, err := reporting.OrderFactsTable(cfg.BigQuery.OrderFactsTable)
	if err != nil {
		logg.Error(bootCtx, "failed to describe order facts table", err)
		os.Exit(1)
	}
	if err := bqClient.EnsureTable(bootCtx, factsTable); err != nil {
		logg.Error(bootCtx, "failed to ensure order facts table", err)
		os.Exit(1)
	}

	sender, err := mail.NewSendgridClient(cfg.Sendgrid)
	if err != nil {
		logg.Error(bootCtx, "failed to create sendgrid client", err)
		os.Exit(1)
	}

	ledger, err := idempotency.NewLedger(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(bootCtx, "failed to create idempotency ledger", err)
		os.Exit(1)
	}

	confirmations, err := notifications.NewOrderConfirmationHandler(sender, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to create notification handler", err)
		os.Exit(1)
	}
	notificationWorker, err := worker.NewService(notifications.ConsumerName, pubsubClient.NotificationsSubscription(), confirmations, ledger, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to create notification consumer", err)
		os.Exit(1)
	}

	factWriter, err := reporting.NewFactWriter(bqClient, cfg.BigQuery.OrderFactsTable, reporting.RetryPolicy{})
	if err != nil {
		logg.Error(bootCtx, "failed to create order fact writer", err)
		os.Exit(1)
	}
	facts, err := reporting.NewOrderFactsHandler(factWriter, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to create reporting handler", err)
		os.Exit(1)
	}
	reportingWorker, err := worker.NewService(reporting.ConsumerName, pubsubClient.ReportingSubscription(), facts, ledger, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to create reporting consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: []dependency{
			{name: "redis", ping: redisClient.Ping},
			{name: "pubsub", ping: pubsubClient.Ping},
			{name: "bigquery", ping: bqClient.Ping},
		},
		Consumers: []consumer{notificationWorker, reportingWorker},
	})
	if err != nil {
		logg.Error(bootCtx, "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
