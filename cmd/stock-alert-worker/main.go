package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bitetrack/bitetrack-backend/internal/alerts"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/idempotency"
	"github.com/bitetrack/bitetrack-backend/pkg/pubsub"
	"github.com/bitetrack/bitetrack-backend/pkg/redis"
)

const serviceName = "stock-alert-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), "no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(context.Background(), logg, "loading config", err)
	}
	cfg.Service.Kind = serviceName
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fatal(ctx, logg, "connecting to redis", err)
	}
	defer closeOnExit(logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		fatal(ctx, logg, "connecting to pubsub", err)
	}
	defer closeOnExit(logg, "pubsub client", pubsubClient.Close)

	subscription := pubsubClient.DomainSubscription()
	if subscription == nil {
		fatal(ctx, logg, "resolving domain subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Alerts.EventTTL)
	if err != nil {
		fatal(ctx, logg, "creating idempotency manager", err)
	}

	consumer, err := alerts.NewConsumer(manager, cfg.Alerts.LowStockThreshold, logg)
	if err != nil {
		fatal(ctx, logg, "creating stock alert consumer", err)
	}

	worker, err := alerts.NewWorker(subscription, consumer, logg)
	if err != nil {
		fatal(ctx, logg, "creating stock alert worker", err)
	}

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
	})
	logg.Info(runCtx, "stock alert worker ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(runCtx, logg, "stock alert worker stopped unexpectedly", err)
	}
}

func fatal(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}

func closeOnExit(logg *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logg.Error(context.Background(), "closing "+name, err)
	}
}
