// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads admindesk settings from flags, a YAML file and the
// environment.
//
// Precedence, highest first: explicitly set flags, the config file, the
// DATABASE_URL environment variable (also read from .env.local), flag
// defaults.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/admindesk/internal/xdg"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// EnvFile is loaded into the environment before config is read, if present.
const EnvFile = ".env.local"

// Config is the fully resolved configuration.
type Config struct {
	HTTPAddr           string        `koanf:"http-addr"`
	MetricsAddr        string        `koanf:"metrics-addr"`
	DatabaseURL        string        `koanf:"database-url"`
	Storage            string        `koanf:"storage"`
	LogFormat          string        `koanf:"log-format"`
	LogLevel           string        `koanf:"log-level"`
	MaxFailedAttempts  int           `koanf:"max-failed-attempts"`
	LockoutWindow      time.Duration `koanf:"lockout-window"`
	SessionIdleTimeout time.Duration `koanf:"session-idle-timeout"`
	MaxPageSize        int           `koanf:"max-page-size"`
	AdminRoles         []string      `koanf:"admin-roles"`
	LoginRate          float64       `koanf:"login-rate"`
	LoginBurst         int           `koanf:"login-burst"`
	StoreTimeout       time.Duration `koanf:"store-timeout"`
	TrustProxy         bool          `koanf:"trust-proxy"`
}

// Defaults.
const (
	DefaultHTTPAddr     = ":8080"
	DefaultMetricsAddr  = "127.0.0.1:9100"
	DefaultLogFormat    = "json"
	DefaultLoginRate    = 1.0
	DefaultLoginBurst   = 5
	DefaultStoreTimeout = 5 * time.Second
)

// RegisterFlags adds every config key to flags with its default value.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file path (default: $XDG_CONFIG_HOME/admindesk/config.yaml)")
	flags.String("http-addr", DefaultHTTPAddr, "HTTP listen address")
	flags.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	flags.String("storage", StoragePostgres, "account storage backend (postgres or memory)")
	flags.String("log-format", DefaultLogFormat, "log format (json or text)")
	flags.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	flags.Int("max-failed-attempts", 5, "consecutive failed logins before an account locks (0 = never)")
	flags.Duration("lockout-window", 15*time.Minute, "how long a lock lasts (0 = until an admin unlocks)")
	flags.Duration("session-idle-timeout", 30*time.Minute, "idle time after which a session ends")
	flags.Int("max-page-size", 500, "largest directory page a client may request")
	flags.StringSlice("admin-roles", []string{"admin"}, "roles allowed to administer accounts")
	flags.Float64("login-rate", DefaultLoginRate, "login attempts per second allowed per client IP")
	flags.Int("login-burst", DefaultLoginBurst, "login attempt burst allowed per client IP")
	flags.Duration("store-timeout", DefaultStoreTimeout, "deadline for each storage call made by a request")
	flags.Bool("trust-proxy", false, "trust X-Forwarded-For and X-Forwarded-Proto headers")
}

// Load resolves the configuration. flags must have been passed to
// RegisterFlags and parsed.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// A missing .env.local is normal.
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("CONFIG_ENV_FAILED").With("file", EnvFile).Wrap(err)
	}

	k := koanf.New(".")

	if url := os.Getenv("DATABASE_URL"); url != "" {
		if err := k.Set("database-url", url); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	path, _ := flags.GetString("config")
	if path == "" {
		path = xdg.ConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	// Flag defaults only fill keys no other source set.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTPAddr == "" {
		errs = append(errs, "http-addr is required")
	}
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "database-url (or DATABASE_URL) is required for postgres storage")
		}
	case StorageMemory:
	default:
		errs = append(errs, "storage must be 'postgres' or 'memory'")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, "log-format must be 'json' or 'text'")
	}
	if c.MaxFailedAttempts < 0 {
		errs = append(errs, "max-failed-attempts cannot be negative")
	}
	if c.LockoutWindow < 0 {
		errs = append(errs, "lockout-window cannot be negative")
	}
	if c.SessionIdleTimeout <= 0 {
		errs = append(errs, "session-idle-timeout must be positive")
	}
	if c.MaxPageSize <= 0 {
		errs = append(errs, "max-page-size must be positive")
	}
	if len(c.AdminRoles) == 0 {
		errs = append(errs, "admin-roles needs at least one role")
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		errs = append(errs, "login-rate and login-burst must be positive")
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, "store-timeout must be positive")
	}

	if len(errs) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", errs).
			Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
