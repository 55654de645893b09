package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

const serviceName = "migrate"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	_ = godotenv.Load()

	mode := flag.String("cmd", "up", "one of: up, down, status, version, create, validate")
	dir := flag.String("dir", migrate.DefaultDir, "directory holding goose SQL migrations")
	migrationName := flag.String("name", "", "migration name, required for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS), required for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "loading config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": *mode,
		"dir":     *dir,
	})

	// create and validate work on the migrations directory alone.
	switch *mode {
	case "create":
		if *migrationName == "" {
			fail("the create command needs -name")
		}
		file, err := migrate.CreateSQLMigration(*dir, *migrationName)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Printf("created %s\n", file)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("validate migrations: %v", err)
		}
		fmt.Println("migrations OK")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "connecting to database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	raw, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "unwrapping sql handle", err)
		os.Exit(1)
	}

	logg.Info(ctx, "database connected")

	switch *mode {
	case "up", "down", "status":
		if err := migrate.Run(ctx, raw, *dir, *mode); err != nil {
			fail("goose %s: %v", *mode, err)
		}

	case "version":
		if *target == "" {
			fail("the version command needs -version")
		}
		if err := migrate.MigrateToVersion(ctx, raw, *dir, *target); err != nil {
			fail("migrate to version %s: %v", *target, err)
		}

	default:
		fail("unknown -cmd value: %s", *mode)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
