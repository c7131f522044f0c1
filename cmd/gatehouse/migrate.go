// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with up/down/version
// actions.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply, roll back, or inspect schema migrations on the PostgreSQL database.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back one migration",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE:  runMigrateVersion,
	})

	return cmd
}

func openMigrator() (*store.Migrator, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	return store.NewMigrator(databaseURL)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	cmd.Println("Rolling back one migration...")
	if err := m.Steps(-1); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
	}

	cmd.Println("Rollback completed successfully")
	return nil
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	version, dirty, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "version").Wrap(err)
	}

	if version == 0 {
		cmd.Println("No migrations applied")
		return nil
	}
	cmd.Printf("Version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func closeMigrator(m *store.Migrator) {
	if err := m.Close(); err != nil {
		slog.Debug("error closing migrator", "error", err)
	}
}
