package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/sunrise-backend/internal/cron"
	"github.com/angelmondragon/sunrise-backend/internal/storefront"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/db"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/metrics"
	"github.com/angelmondragon/sunrise-backend/pkg/migrate"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox"
	"github.com/angelmondragon/sunrise-backend/pkg/redis"
)

const (
	serviceName = "cron-worker"
	lockName    = "cron-worker"
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
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceName})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
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

	registry, err := buildRegistry(cfg, logg, sf, outbox.NewDLQRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, lockName, cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "lockKey", lock.Key()), "starting cron worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg)
	})
	return g.Wait()
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, sf *storefront.Storefront, dlq *outbox.DLQRepository) (*cron.Registry, error) {
	expiry, err := cron.NewPaymentAttemptExpiryJob(cron.PaymentAttemptExpiryJobParams{
		Logger:    logg,
		Expirer:   sf.Checkout,
		BatchSize: cfg.Cron.PaymentExpiryBatchSize,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Logger: logg,
		Targets: []cron.RetentionTarget{
			{Name: "outbox_events", Window: cfg.Cron.OutboxRetention, Purge: sf.OutboxRepo.DeletePublishedBefore},
			{Name: "outbox_dlq", Window: cfg.Cron.DLQRetention, Purge: dlq.DeleteFailedBefore},
		},
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	registry.Register(expiry, cfg.Cron.PaymentExpiryEvery)
	registry.Register(retention, cfg.Cron.RetentionEvery)
	return registry, nil
}

func closeWith(logg *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
