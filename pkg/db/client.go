// Package db owns the shared GORM connection. GORM's per-statement
// transaction wrapping is disabled; every multi-statement write path goes
// through WithTx explicitly so the sale and drop invariants hold under one
// transaction.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the pooled GORM handle handed to repositories.
type Client struct {
	db *gorm.DB
}

// New opens the Postgres connection and applies the pool settings from
// config. GORM's own logger is discarded; query diagnostics belong to the
// structured application log.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("reaching the connection pool: %w", err)
	}
	tunePool(pool, cfg)

	if logg != nil {
		logg.Info(ctx, "connected to postgres")
	}
	return &Client{db: conn}, nil
}

// tunePool applies only the knobs config actually sets, leaving the
// database/sql defaults alone otherwise.
func tunePool(pool *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// WithTx runs fn inside one transaction. fn's error rolls back, a panic
// rolls back and re-raises, anything else commits.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.db.WithContext(ctx).Transaction(fn)
}

// Ping reports whether the database answers. The readiness probe calls it.
func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.db.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// Close drains the connection pool.
func (c *Client) Close() error {
	pool, err := c.db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// DB exposes the raw GORM handle for migrations and repository wiring.
func (c *Client) DB() *gorm.DB {
	return c.db
}
