// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package database opens the PostgreSQL pool behind the client, skeleton,
// template and settings stores, and applies the embedded goose migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Pool sizing. Site HTML rows are large but few requests touch the
// database: the gateway serves mostly from the page cache.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// ConnectAttempts and ConnectBackoff bound how long Connect waits for a
// database that is still starting, as under docker compose.
var (
	ConnectAttempts = 5
	ConnectBackoff  = 2 * time.Second
)

// Connect opens a PostgreSQL pool and pings it, retrying while the server
// refuses connections.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt >= ConnectAttempts || ctx.Err() != nil {
			db.Close()
			return nil, fmt.Errorf("database ping: %w", err)
		}
		slog.Warn("database not ready, retrying", "attempt", attempt, "error", err)
		select {
		case <-time.After(ConnectBackoff):
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("database ping: %w", ctx.Err())
		}
	}

	slog.Info("database connected")
	return db, nil
}

// Migrate applies all pending migrations from the embedded SQL files.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}
	slog.Info("database migrations applied", "version", version)
	return nil
}
