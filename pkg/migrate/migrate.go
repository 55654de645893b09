// Package migrate wraps goose: schema migrations live as SQL files under
// DefaultDir and are applied by the migrate binary, or automatically at boot
// in dev.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// prepare validates the handle pair and pins the goose dialect. The schema
// targets Postgres; sqlite is only used by package tests, which execute the
// DDL through their own fixtures.
func prepare(db *sql.DB, dir string) error {
	switch {
	case db == nil:
		return fmt.Errorf("db is required")
	case dir == "":
		return fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return nil
}

// Run executes a goose command (up, down, status) against an open database.
// Goose prints its own progress to stdout.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if err := prepare(db, dir); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("running goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema to exactly targetVersion, going up or
// down from wherever the database currently sits.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	if err := prepare(db, dir); err != nil {
		return err
	}
	version, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	from, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	switch {
	case from == version:
		return nil
	case from < version:
		if err := goose.UpToContext(ctx, db, dir, version); err != nil {
			return fmt.Errorf("migrating up to %d: %w", version, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dir, version); err != nil {
			return fmt.Errorf("migrating down to %d: %w", version, err)
		}
	}
	return nil
}
