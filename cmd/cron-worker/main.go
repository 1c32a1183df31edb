package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/gigdesk-backend/internal/cron"
	"github.com/angelmondragon/gigdesk-backend/internal/quota"
	"github.com/angelmondragon/gigdesk-backend/internal/subscriptions"
	"github.com/angelmondragon/gigdesk-backend/internal/usage"
	"github.com/angelmondragon/gigdesk-backend/pkg/config"
	"github.com/angelmondragon/gigdesk-backend/pkg/db"
	"github.com/angelmondragon/gigdesk-backend/pkg/instance"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/metrics"
	"github.com/angelmondragon/gigdesk-backend/pkg/migrate"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
	"github.com/angelmondragon/gigdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.Quota.Location()
	if err != nil {
		logg.Error(context.Background(), "failed to resolve timezone", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:     subscriptions.NewRepository(dbClient.DB()),
		Usage:    usage.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Cache:    quota.NewPlanCache(redisClient, cfg.Quota.PlanCacheTTL),
		Catalog:  plans.Default(),
		Location: loc,
		Currency: cfg.Payments.Currency,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:        logg,
		Subscriptions: subscriptionService,
		BatchSize:     cfg.Cron.ExpiryBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription expiry job", err)
		os.Exit(1)
	}
	orderTTLJob, err := cron.NewCheckoutOrderTTLJob(cron.CheckoutOrderTTLJobParams{
		Logger: logg,
		Orders: subscriptionService,
		MaxAge: cfg.Cron.CheckoutOrderMaxAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout order ttl job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cron.LockName, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	reg := metrics.New()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob, orderTTLJob),
		Lock:     lock,
		Metrics:  reg.Cron,
		Schedule: cfg.Cron.Schedule,
		Location: loc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"schedule": cfg.Cron.Schedule,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
