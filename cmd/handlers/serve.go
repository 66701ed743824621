package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"duckwire/internal/config"
	"duckwire/internal/logger"
	"duckwire/internal/realtime"
	"duckwire/internal/server"
	"duckwire/internal/votes"
)

// NewServeCmd creates the serve command for starting the HTTP server.
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and websocket server",
		Long: `Start the DuckWire server.

The server provides:
  • REST API for aggregated news and story clusters
  • Stake-weighted bias voting on providers
  • Websocket feed of cluster updates

Refreshes triggered over HTTP require an admin session. Run ingestion
separately (e.g. via 'duckwire refresh' on a schedule) to keep content
fresh without one.

Examples:
  # Start server on default port 8080
  duckwire serve

  # Start on custom port
  duckwire serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	comps := buildComponents(cfg)
	defer comps.close()

	voteStore, err := votes.NewStore(filepath.Join(cfg.App.DataDir, "votes.db"), cfg.Votes.MinStake)
	if err != nil {
		return fmt.Errorf("failed to open vote store: %w", err)
	}
	defer voteStore.Close()

	hub := realtime.NewHub()
	go hub.Run()

	bridgeCtx, cancelBridge := context.WithCancel(context.Background())
	defer cancelBridge()
	if rdb := comps.redis(); rdb != nil {
		go realtime.Bridge(bridgeCtx, rdb, hub)
	} else {
		log.Warn("no broker configured, websocket clients only see local updates")
	}

	sessions := server.NewSessionSigner(cfg.Admin.SessionSecret,
		config.ParseDuration(cfg.Admin.SessionTTL, 12*time.Hour))

	srv := server.New(cfg, comps.pipe, comps.gateway, voteStore, hub, sessions)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("Server stopped successfully")
	}

	return nil
}
