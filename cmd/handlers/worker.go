package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"duckwire/internal/config"
	"duckwire/internal/logger"
)

// NewWorkerCmd creates the worker command that drains the job queues.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a background worker draining the job queues",
		Long: `Run a worker that pops jobs from the ingestion, clustering, and
verification queues and executes them. Failed jobs are retried with
exponential backoff until the attempt budget is spent.

Examples:
  # Start a worker
  duckwire worker`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
	return cmd
}

func runWorker(ctx context.Context) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	comps := buildComponents(cfg)
	defer comps.close()

	if comps.queues == nil {
		return fmt.Errorf("no queue broker configured; set REDIS_URL to run a worker")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Info("Worker shutdown initiated", "signal", sig.String())
		cancel()
	}()

	log.Info("Worker started, draining queues")
	err = comps.queues.Run(runCtx, comps.pipe.Handlers(comps.queues))
	if err == context.Canceled {
		log.Info("Worker stopped")
		return nil
	}
	return err
}
