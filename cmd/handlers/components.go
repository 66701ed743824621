package handlers

import (
	"github.com/redis/go-redis/v9"

	"duckwire/internal/aggregate"
	"duckwire/internal/config"
	"duckwire/internal/logger"
	"duckwire/internal/persistence"
	"duckwire/internal/pipeline"
	"duckwire/internal/providers"
	"duckwire/internal/queue"
	"duckwire/internal/summarize"
)

// components holds everything a command may need. Optional pieces are nil
// when unconfigured; commands decide which absences are fatal.
type components struct {
	cfg     *config.Config
	pipe    *pipeline.Pipeline
	gateway *persistence.Gateway
	queues  *queue.Queues
}

// buildComponents assembles the pipeline from configuration. A missing
// database or broker is downgraded to a warning so commands that can run
// without them still do.
func buildComponents(cfg *config.Config) *components {
	c := &components{cfg: cfg}

	if cfg.Database.ConnectionString != "" {
		gateway, err := persistence.New(cfg.Database.ConnectionString)
		if err != nil {
			logger.Warn("database unavailable, continuing without persistence", "error", err.Error())
		} else {
			c.gateway = gateway
		}
	} else {
		logger.Warn("no database configured, continuing without persistence")
	}

	if cfg.Redis.URL != "" {
		queues, err := queue.New(cfg.Redis.URL, cfg.Redis.QueuePrefix,
			cfg.Queue.Attempts, config.ParseDuration(cfg.Queue.BackoffDelay, queue.DefaultBackoff))
		if err != nil {
			logger.Warn("redis unavailable, continuing without queues", "error", err.Error())
		} else {
			c.queues = queues
		}
	}

	aggregator := aggregate.New(providers.FromConfig(cfg.Providers), cfg.Providers.MaxPerProvider)
	summarizer := summarize.NewClient(cfg.AI)

	c.pipe = pipeline.New(cfg, aggregator, summarizer, c.gateway, c.redis())
	return c
}

func (c *components) redis() *redis.Client {
	if c.queues == nil {
		return nil
	}
	return c.queues.Redis()
}

func (c *components) close() {
	if c.gateway != nil {
		c.gateway.Close()
	}
	if c.queues != nil {
		c.queues.Close()
	}
}
