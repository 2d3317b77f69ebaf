// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holomush/admindesk/internal/config"
	"github.com/holomush/admindesk/internal/logging"
)

const serviceName = "admindesk"

// NewRootCmd creates the root command for the admindesk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admindesk",
		Short: "admindesk - account administration console",
		Long: `admindesk serves a login, registration and account directory API
backed by PostgreSQL, with a paginated listing for administrators.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}

// loadConfig resolves configuration from the command's flags and installs
// the default logger it describes.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(serviceName, version, logging.Options{Format: cfg.LogFormat, Level: level})
	return cfg, nil
}
