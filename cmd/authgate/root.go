// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/logging"
	"github.com/authgate/authgate/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile  string
	databaseDSN string
	logFormat   string
)

// NewRootCmd creates the root command for the authgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authgate",
		Short: "Authgate - credential and session lifecycle engine",
		Long: `Authgate manages user credentials and sessions: password hashing,
signed email verification links, single-use password reset tokens, and
session lifecycle with fixation prevention.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.SetDefault("authgate", cmd.Root().Version, logFormat)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&databaseDSN, "database-dsn", "", "PostgreSQL connection string (overrides config)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json or text)")

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewCleanupCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// resolveConfigPath returns the --config flag if set, otherwise the
// XDG default location when a config file exists there.
func resolveConfigPath() string {
	if configFile != "" {
		return configFile
	}
	path := xdg.DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// resolveDSN prefers the --database-dsn flag, then the config file,
// then the DATABASE_URL environment variable.
func resolveDSN() (string, error) {
	if databaseDSN != "" {
		return databaseDSN, nil
	}
	if path := resolveConfigPath(); path != "" {
		cfg, err := config.Parse(path, nil)
		if err != nil {
			return "", err
		}
		if cfg.Database.DSN != "" {
			return cfg.Database.DSN, nil
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}
	return "", oops.Code("CONFIG_INVALID").
		Errorf("database DSN is required (--database-dsn, config file, or DATABASE_URL)")
}
