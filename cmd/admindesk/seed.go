// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/internal/config"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedFile is the YAML layout of a seed file:
//
//	accounts:
//	  - handle: root
//	    email: root@example.com
//	    password: Change-me-123
//	    roles: [admin]
type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	Handle    string   `yaml:"handle"`
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Roles     []string `yaml:"roles"`
}

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Create the accounts listed in a YAML file",
		Long: `Creates each account in FILE unless one with the same handle exists.
This command is idempotent - it will not create duplicates if run multiple times.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string, cfg *seedConfig, deps *ServeDeps) error {
	appCfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if appCfg.Storage != config.StoragePostgres {
		return oops.Code("CONFIG_INVALID").Errorf("seeding needs postgres storage, got %q", appCfg.Storage)
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	be, err := openBackend(ctx, appCfg, deps.withDefaults())
	if err != nil {
		return err
	}
	defer be.close()

	codec := auth.NewArgon2Codec(auth.DefaultArgon2Params())
	created, skipped, err := seedFromFile(ctx, args[0], be.accounts, codec)
	if err != nil {
		return err
	}
	cmd.Printf("Seed complete: %d created, %d already present\n", created, skipped)
	return nil
}

// seedFromFile reads path and creates its accounts.
func seedFromFile(ctx context.Context, path string, accounts account.Store, codec auth.PasswordCodec) (created, skipped int, err error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return 0, 0, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, 0, oops.Code("SEED_INVALID").With("path", path).Wrap(err)
	}
	return seedAccounts(ctx, file.Accounts, accounts, codec)
}

// seedAccounts creates each account whose handle is not taken. Existing
// accounts are left untouched.
func seedAccounts(ctx context.Context, seeds []seedAccount, accounts account.Store, codec auth.PasswordCodec) (created, skipped int, err error) {
	for _, s := range seeds {
		_, findErr := accounts.FindByHandle(ctx, s.Handle)
		switch {
		case findErr == nil:
			skipped++
			continue
		case !errors.Is(findErr, account.ErrNotFound):
			return created, skipped, oops.Code("SEED_FAILED").With("handle", s.Handle).Wrap(findErr)
		}

		if !auth.IsStrong(s.Password) {
			return created, skipped, oops.Code("SEED_WEAK_PASSWORD").With("handle", s.Handle).
				Errorf("password for %q is too weak", s.Handle)
		}
		salt, err := codec.GenerateSalt()
		if err != nil {
			return created, skipped, oops.Code("SEED_FAILED").With("handle", s.Handle).Wrap(err)
		}
		digest, err := codec.Hash(s.Password, salt)
		if err != nil {
			return created, skipped, oops.Code("SEED_FAILED").With("handle", s.Handle).Wrap(err)
		}
		a, err := account.NewAccount(s.Handle, s.Email, s.FirstName, s.LastName, digest, salt)
		if err != nil {
			return created, skipped, oops.Code("SEED_INVALID_ACCOUNT").With("handle", s.Handle).Wrap(err)
		}
		for _, role := range s.Roles {
			a.Roles.Add(role)
		}
		if _, err := accounts.Save(ctx, a); err != nil {
			return created, skipped, oops.Code("SEED_FAILED").With("handle", s.Handle).Wrap(err)
		}
		created++
	}
	return created, skipped, nil
}
