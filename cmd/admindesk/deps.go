// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
	accountmem "github.com/holomush/admindesk/internal/account/memory"
	accountpg "github.com/holomush/admindesk/internal/account/postgres"
	"github.com/holomush/admindesk/internal/auth"
	authmem "github.com/holomush/admindesk/internal/auth/memory"
	authpg "github.com/holomush/admindesk/internal/auth/postgres"
	"github.com/holomush/admindesk/internal/config"
	"github.com/holomush/admindesk/internal/observability"
	"github.com/holomush/admindesk/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens a PostgreSQL pool.
	// Default: store.Connect with store.DefaultConnectOptions
	PoolFactory func(ctx context.Context, url string) (*pgxpool.Pool, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, checker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer
}

// Migrator wraps the methods the CLI uses from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = func(ctx context.Context, url string) (*pgxpool.Pool, error) {
			return store.Connect(ctx, url, store.DefaultConnectOptions())
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, checker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, checker, logger)
		}
	}
	return &out
}

// backend is the storage selected by configuration.
type backend struct {
	accounts account.Store
	tokens   auth.RememberTokenStore
	ready    observability.ReadinessChecker
	close    func()
}

func openBackend(ctx context.Context, cfg *config.Config, deps *ServeDeps) (*backend, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return &backend{
			accounts: accountmem.NewStore(),
			tokens:   authmem.NewTokenStore(),
			close:    func() {},
		}, nil
	case config.StoragePostgres:
		pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		return &backend{
			accounts: accountpg.NewAccountRepository(pool),
			tokens:   authpg.NewRememberTokenRepository(pool),
			ready:    pool.Ping,
			close:    pool.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("storage", cfg.Storage).Errorf("unknown storage backend %q", cfg.Storage)
	}
}
