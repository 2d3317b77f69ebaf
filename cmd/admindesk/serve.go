// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/holomush/admindesk/internal/access"
	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/internal/config"
	"github.com/holomush/admindesk/internal/directory"
	"github.com/holomush/admindesk/internal/web"
	"github.com/holomush/admindesk/pkg/errutil"
)

// Background and shutdown timing.
const (
	tokenPurgeInterval = time.Hour
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

// serveOptions are serve flags that are not part of the shared config.
type serveOptions struct {
	seedFile    string
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account console HTTP API",
		Long: `Start the HTTP API for login, registration and the account directory,
plus the metrics and health endpoints when metrics-addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, opts, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.seedFile, "seed-file", "", "YAML file of accounts to create at startup if missing")
	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", true, "apply pending migrations before serving (postgres only)")

	return cmd
}

// runServeWithDeps starts the console with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, opts *serveOptions, deps *ServeDeps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	logger := slog.Default()

	logger.Info("starting admindesk",
		"http_addr", cfg.HTTPAddr,
		"storage", cfg.Storage,
		"log_format", cfg.LogFormat,
	)

	if cfg.Storage == config.StoragePostgres && opts.autoMigrate {
		if err := migrateUp(deps, cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("database schema up to date")
	}

	be, err := openBackend(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer be.close()

	codec := auth.NewArgon2Codec(auth.DefaultArgon2Params())
	authenticator, err := auth.NewAuthenticator(auth.Deps{
		Accounts: be.accounts,
		Tokens:   be.tokens,
		Sessions: auth.NewMemorySessionRegistry(cfg.SessionIdleTimeout),
		Codec:    codec,
	},
		auth.WithMaxFailedAttempts(cfg.MaxFailedAttempts),
		auth.WithLockoutWindow(cfg.LockoutWindow),
		auth.WithLogger(logger),
	)
	if err != nil {
		return oops.With("operation", "create authenticator").Wrap(err)
	}
	registrar, err := auth.NewRegistrar(be.accounts, codec, nil, logger)
	if err != nil {
		return oops.With("operation", "create registrar").Wrap(err)
	}

	if opts.seedFile != "" {
		created, skipped, err := seedFromFile(ctx, opts.seedFile, be.accounts, codec)
		if err != nil {
			return err
		}
		logger.Info("seed applied", "file", opts.seedFile, "created", created, "skipped", skipped)
	}

	policy, err := access.NewStaticPolicyWithRoles(access.RolesWithAdmins(cfg.AdminRoles...))
	if err != nil {
		return oops.With("operation", "build access policy").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineOpts := []directory.EngineOption{
		directory.WithMaxLimit(cfg.MaxPageSize),
		directory.WithLogger(logger),
	}
	webDeps := web.Deps{Auth: authenticator, Registrar: registrar, Logger: logger}

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, be.ready, logger)
		metrics := obsServer.Metrics()
		engineOpts = append(engineOpts, directory.WithObserver(metrics))
		webDeps.Metrics = metrics

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	engine, err := directory.NewEngine(be.accounts, policy, engineOpts...)
	if err != nil {
		return oops.With("operation", "create directory engine").Wrap(err)
	}
	webDeps.Directory = engine

	webServer, err := web.NewServer(webDeps, web.Options{
		TrustProxy:   cfg.TrustProxy,
		StoreTimeout: cfg.StoreTimeout,
		LoginRate:    rate.Limit(cfg.LoginRate),
		LoginBurst:   cfg.LoginBurst,
	})
	if err != nil {
		return oops.With("operation", "create web server").Wrap(err)
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           webServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()
	go purgeExpiredTokens(ctx, authenticator, tokenPurgeInterval, logger)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("admindesk listening on " + listener.Addr().String())
	logger.Info("admindesk ready", "http_addr", listener.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr := <-errChan:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return runErr
}

func migrateUp(deps *ServeDeps, databaseURL string) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Debug("error closing migrator", "error", closeErr)
		}
	}()
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}

func stopObservability(s ObservabilityServer, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			errutil.LogError(slog.Default().With("server", name), "server error, triggering shutdown", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

// purgeExpiredTokens removes expired remember tokens every interval until
// ctx ends.
func purgeExpiredTokens(ctx context.Context, a *auth.Authenticator, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.WarnContext(ctx, "remember token purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "expired remember tokens purged", "count", n)
			}
		}
	}
}
