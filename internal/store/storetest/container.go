// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package storetest starts a migrated PostgreSQL container for
// integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/admindesk/internal/store"
)

// Database is a running, migrated container and a pool connected to it.
type Database struct {
	Pool      *pgxpool.Pool
	ConnStr   string
	container *postgres.PostgresContainer
}

// Start runs postgres:16-alpine, applies every migration and connects.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("admindesk_test"),
		postgres.WithUsername("admindesk"),
		postgres.WithPassword("admindesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.Code("TEST_CONTAINER_FAILED").Wrap(err)
	}

	db := &Database{container: container}
	if err := db.init(ctx); err != nil {
		_ = container.Terminate(ctx) //nolint:errcheck // init error takes precedence
		return nil, err
	}
	return db, nil
}

func (db *Database) init(ctx context.Context) error {
	connStr, err := db.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return oops.Code("TEST_CONTAINER_FAILED").With("operation", "connection string").Wrap(err)
	}
	db.ConnStr = connStr

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // test setup
	if err := migrator.Up(); err != nil {
		return err
	}

	pool, err := store.Connect(ctx, connStr, store.DefaultConnectOptions())
	if err != nil {
		return err
	}
	db.Pool = pool
	return nil
}

// Truncate empties every table between tests.
func (db *Database) Truncate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `TRUNCATE remember_tokens, accounts RESTART IDENTITY CASCADE`)
	if err != nil {
		return oops.Code("TEST_TRUNCATE_FAILED").Wrap(err)
	}
	return nil
}

// Close disconnects and terminates the container.
func (db *Database) Close(ctx context.Context) {
	if db.Pool != nil {
		db.Pool.Close()
	}
	_ = db.container.Terminate(ctx) //nolint:errcheck // best effort teardown
}
