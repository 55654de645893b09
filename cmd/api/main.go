package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/api"
	"github.com/bitetrack/bitetrack-backend/api/routes"
	"github.com/bitetrack/bitetrack-backend/internal/auth"
	"github.com/bitetrack/bitetrack-backend/internal/catalog"
	"github.com/bitetrack/bitetrack-backend/internal/cron"
	"github.com/bitetrack/bitetrack-backend/internal/customers"
	"github.com/bitetrack/bitetrack-backend/internal/drops"
	"github.com/bitetrack/bitetrack-backend/internal/inventory"
	"github.com/bitetrack/bitetrack-backend/internal/sales"
	"github.com/bitetrack/bitetrack-backend/internal/sellers"
	"github.com/bitetrack/bitetrack-backend/pkg/auth/session"
	"github.com/bitetrack/bitetrack-backend/pkg/clock"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/metrics"
	"github.com/bitetrack/bitetrack-backend/pkg/migrate"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/redis"
)

const serviceName = "api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), "no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(context.Background(), logg, "loading config", err)
	}
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

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fatal(ctx, logg, "connecting to redis", err)
	}
	defer closeOnExit(logg, "redis", redisClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fatal(ctx, logg, "creating session manager", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewEngineMetrics(registry)
	sweepMetrics := metrics.NewSweepMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(), logg)
	ledger := inventory.NewLedger()
	systemClock := clock.NewSystem()
	sellerRepo := sellers.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		SellerRepo:     sellerRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		fatal(ctx, logg, "creating auth service", err)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		fatal(ctx, logg, "creating catalog service", err)
	}

	customerService, err := customers.NewService(customers.NewRepository(dbClient.DB()))
	if err != nil {
		fatal(ctx, logg, "creating customer service", err)
	}

	sellerService, err := sellers.NewService(sellerRepo, dbClient, outboxService, cfg.Password)
	if err != nil {
		fatal(ctx, logg, "creating seller service", err)
	}

	saleService, err := sales.NewService(sales.ServiceParams{
		Repo:   sales.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Outbox: outboxService,
		Ledger: ledger,
		Customers: func(tx *gorm.DB) sales.CustomerDirectory {
			return customers.NewRepository(tx)
		},
		Metrics: engineMetrics,
		Clock:   systemClock,
	})
	if err != nil {
		fatal(ctx, logg, "creating sale service", err)
	}

	dropService, err := drops.NewService(drops.ServiceParams{
		Repo:    drops.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Outbox:  outboxService,
		Ledger:  ledger,
		Metrics: engineMetrics,
		Clock:   systemClock,
	})
	if err != nil {
		fatal(ctx, logg, "creating drop service", err)
	}

	if cfg.Jobs.UndoSweepEnabled {
		sweeper, err := newUndoSweep(cfg, logg, dbClient, redisClient, outboxService, sweepMetrics)
		if err != nil {
			fatal(ctx, logg, "creating undo sweep", err)
		}
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "undo sweep stopped unexpectedly", err)
			}
		}()
	}

	handler := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		Sessions:  sessionManager,
		Auth:      authService,
		Catalog:   catalogService,
		Customers: customerService,
		Sellers:   sellerService,
		Sales:     saleService,
		Drops:     dropService,
		Metrics:   registry,
	})

	addr := listenAddr(cfg)
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	if err := api.Serve(ctx, addr, handler, logg); err != nil {
		fatal(startCtx, logg, "api server stopped unexpectedly", err)
	}
}

// newUndoSweep assembles the in-process loop that emits undo-window lapse
// events. The Redis lock keeps concurrent API replicas from double-sweeping.
func newUndoSweep(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	outboxService *outbox.Service,
	sweepMetrics *metrics.SweepMetrics,
) (*cron.Service, error) {
	job, err := cron.NewDropUndoExpiryJob(cron.DropUndoExpiryJobParams{
		Logger:       logg,
		DB:           dbClient,
		LapsedReader: drops.NewRepository(dbClient.DB()),
		Outbox:       outboxService,
		BatchSize:    cfg.Jobs.UndoSweepBatch,
	})
	if err != nil {
		return nil, err
	}

	prune, err := cron.NewOutboxPruneJob(cron.OutboxPruneJobParams{
		Logger:         logg,
		DB:             dbClient,
		Outbox:         outbox.NewRepository(),
		KeepDays:       cfg.Jobs.OutboxKeepDays,
		AttemptCeiling: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("undo-sweep"), cfg.Jobs.UndoSweepInterval*2)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job, prune),
		Lock:     lock,
		Metrics:  sweepMetrics,
		Interval: cfg.Jobs.UndoSweepInterval,
	})
}

// listenAddr prefers the PORT variable injected by the container platform
// over the configured default.
func listenAddr(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + cfg.App.Port
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
