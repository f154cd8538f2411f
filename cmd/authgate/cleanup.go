// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package main

import (
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/auth/postgres"
	"github.com/authgate/authgate/internal/store"
)

// NewCleanupCmd creates the cleanup subcommand.
func NewCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge expired reset tokens and sessions",
		Long: `Delete reset tokens past their expiry and sessions past the absolute
timeout. Run this periodically, e.g. from cron.`,
		RunE: runCleanup,
	}
	cmd.Flags().Duration("session-max-age", auth.DefaultAbsoluteTimeout, "delete sessions older than this")
	return cmd
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	dsn, err := resolveDSN()
	if err != nil {
		return err
	}
	maxAge, err := cmd.Flags().GetDuration("session-max-age")
	if err != nil {
		return oops.Code("FLAG_INVALID").Wrap(err)
	}
	if maxAge <= 0 {
		return oops.Code("CLEANUP_INVALID").
			With("session_max_age", maxAge).
			Errorf("session max age must be positive")
	}

	ctx := cmd.Context()
	pool, err := store.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	resets := postgres.NewResetTokenRepository(pool)
	tokenCount, err := resets.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d expired reset tokens\n", tokenCount)

	sessions := postgres.NewSessionStore(pool)
	sessionCount, err := sessions.DeleteCreatedBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d expired sessions\n", sessionCount)
	return nil
}
