package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/migrate"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/registry"
	"github.com/bitetrack/bitetrack-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

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

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal(ctx, logg, "connecting to database", err)
	}
	defer closeOnExit(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fatal(ctx, logg, "running dev migrations", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		fatal(ctx, logg, "connecting to pubsub", err)
	}
	defer closeOnExit(logg, "pubsub client", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		fatal(ctx, logg, "building event registry", err)
	}

	publisher, err := NewPublisher(PublisherParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(),
	})
	if err != nil {
		fatal(ctx, logg, "creating outbox publisher", err)
	}

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
	})
	logg.Info(runCtx, "starting outbox publisher")

	if err := publisher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(runCtx, logg, "outbox publisher stopped unexpectedly", err)
	}
	logg.Info(runCtx, "outbox publisher shutting down gracefully")
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
