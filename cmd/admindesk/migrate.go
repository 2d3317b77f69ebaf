// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holomush/admindesk/internal/config"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the account database schema",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL migrations.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateUpCmd(nil))
	cmd.AddCommand(newMigrateDownCmd(nil))
	cmd.AddCommand(newMigrateStepsCmd(nil))
	cmd.AddCommand(newMigrateStatusCmd(nil))
	cmd.AddCommand(newMigrateForceCmd(nil))
	return cmd
}

// openMigrator loads config and opens a migrator for its database.
func openMigrator(flags *pflag.FlagSet, deps *ServeDeps) (Migrator, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if cfg.Storage != config.StoragePostgres {
		return nil, oops.Code("CONFIG_INVALID").Errorf("migrations need postgres storage, got %q", cfg.Storage)
	}
	m, err := deps.withDefaults().MigratorFactory(cfg.DatabaseURL)
	if err != nil {
		return nil, oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	return m, nil
}

func closeMigrator(cmd *cobra.Command, m Migrator) {
	if err := m.Close(); err != nil {
		cmd.PrintErrln("warning: closing migrator:", err)
	}
}

func newMigrateUpCmd(deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator(cmd.Flags(), deps)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			cmd.Println("Running migrations...")
			if err := m.Up(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}

func newMigrateDownCmd(deps *ServeDeps) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all account data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("down drops every account; pass --yes to confirm")
			}
			m, err := openMigrator(cmd.Flags(), deps)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			if err := m.Down(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
			}
			cmd.Println("All migrations rolled back")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all data")
	return cmd
}

func newMigrateStepsCmd(deps *ServeDeps) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "steps N",
		Short: "Apply N pending migrations, or roll back N with a negative count",
		Long: `Apply the next N migrations. A negative N rolls back that many and
needs --yes; pass it after "--" so it is not read as a flag:

  admindesk migrate steps --yes -- -1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseSteps(args[0])
			if err != nil {
				return err
			}
			if n < 0 && !confirm {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("rolling back drops account data; pass --yes to confirm")
			}
			m, err := openMigrator(cmd.Flags(), deps)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			if err := m.Steps(n); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "step migrations").With("steps", n).Wrap(err)
			}
			version, _, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Schema now at version %d\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm a rollback")
	return cmd
}

// parseSteps reads a non-zero step count.
func parseSteps(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_STEPS").With("input", s).Wrap(err)
	}
	if n == 0 {
		return 0, oops.Code("INVALID_STEPS").With("input", s).Errorf("step count cannot be zero")
	}
	return n, nil
}

func newMigrateStatusCmd(deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator(cmd.Flags(), deps)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			pending, err := m.PendingMigrations()
			if err != nil {
				return err
			}

			cmd.Printf("Current version: %d\n", version)
			if dirty {
				cmd.Println("Schema is DIRTY: fix the failed migration, then run 'migrate force VERSION'")
			}
			if len(pending) == 0 {
				cmd.Println("No pending migrations")
				return nil
			}
			cmd.Printf("Pending migrations: %s\n", formatVersions(pending))
			return nil
		},
	}
}

func newMigrateForceCmd(deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			m, err := openMigrator(cmd.Flags(), deps)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, m)

			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced schema version to %d\n", version)
			return nil
		},
	}
}

// parseForceVersion reads a leading integer, ignoring surrounding text.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}

func formatVersions(versions []uint) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = fmt.Sprintf("%06d", v)
	}
	return strings.Join(parts, ", ")
}
