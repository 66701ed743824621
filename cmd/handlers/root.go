// Package handlers wires the CLI commands: serve, refresh, worker, and
// migrate. Each command loads configuration, assembles the components it
// needs, and runs one boundary of the system.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"duckwire/internal/config"
	"duckwire/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "duckwire",
		Short: "DuckWire aggregates news, clusters stories, and serves bias-aware summaries.",
		Long: `DuckWire pulls articles from multiple news providers, groups them into
story clusters by textual similarity, and summarizes each cluster from
left, center, and right perspectives.

Commands:
  serve    start the HTTP API and websocket server
  refresh  run one ingestion and clustering pass
  worker   drain the background job queues
  migrate  create the database schema`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .duckwire.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewRefreshCmd())
	rootCmd.AddCommand(NewWorkerCmd())
	rootCmd.AddCommand(NewMigrateCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set, then applies
// the configured log level.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.App.Debug {
		logger.SetLevel("debug")
	}
}
