package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"duckwire/internal/config"
	"duckwire/internal/logger"
	"duckwire/internal/persistence"
)

// NewMigrateCmd creates the migrate command that prepares the database schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long: `Create the articles, clusters, and cluster membership tables if they
do not exist. Safe to run repeatedly.

Examples:
  duckwire migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
	return cmd
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.ConnectionString == "" {
		return fmt.Errorf("database connection string not configured; set DATABASE_URL")
	}

	gateway, err := persistence.New(cfg.Database.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer gateway.Close()

	if err := gateway.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("database schema up to date")
	return nil
}
