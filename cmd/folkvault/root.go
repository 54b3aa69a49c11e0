// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the FolkVault CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folkvault",
		Short: "FolkVault - a cultural traditions backend",
		Long: `FolkVault is a backend for cataloguing folk traditions, with user
accounts, profiles, and an admin activity log.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewBackfillCmd())

	return cmd
}
