// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/folkvault/folkvault/internal/auth"
	authpg "github.com/folkvault/folkvault/internal/auth/postgres"
	"github.com/folkvault/folkvault/internal/logging"
	"github.com/folkvault/folkvault/internal/store"
)

// Default timeout for the backfill command.
const defaultBackfillTimeout = 5 * time.Minute

// backfillConfig holds configuration for the backfill subcommand.
type backfillConfig struct {
	timeout time.Duration
}

// NewBackfillCmd creates the backfill subcommand.
func NewBackfillCmd() *cobra.Command {
	cfg := &backfillConfig{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Assign usernames to accounts that predate usernames",
		Long: `Scans all user accounts and assigns a generated username to any
account that does not have one yet. Safe to run multiple times.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackfill(cmd, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultBackfillTimeout, "timeout for the backfill run (e.g., 30s, 5m)")

	return cmd
}

func runBackfill(cmd *cobra.Command, cfg *backfillConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	logger := logging.Setup("folkvault", version, "text", os.Stderr)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	db, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	users := authpg.NewUserRepository(db.Pool())
	backfiller, err := auth.NewBackfiller(users, logger)
	if err != nil {
		return oops.Code("BACKFILL_FAILED").With("operation", "create backfiller").Wrap(err)
	}

	cmd.Println("Backfilling usernames...")
	assigned, err := backfiller.Run(ctx)
	if err != nil {
		return oops.Code("BACKFILL_FAILED").With("operation", "run backfill").Wrap(err)
	}

	cmd.Printf("Backfill complete: %d username(s) assigned\n", assigned)
	return nil
}
