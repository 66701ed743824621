package persistence

import (
	"context"
	"fmt"
)

// migrations run in order; each statement is idempotent so the command can
// be re-run safely.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT,
		author TEXT,
		image_url TEXT,
		published_at TIMESTAMPTZ,
		provider TEXT,
		source_name TEXT,
		source_url TEXT,
		topic TEXT,
		raw JSONB,
		date_added TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at DESC)`,
	`CREATE TABLE IF NOT EXISTS clusters (
		id TEXT PRIMARY KEY,
		headline TEXT NOT NULL DEFAULT '',
		summary_left JSONB NOT NULL DEFAULT '[]',
		summary_center JSONB NOT NULL DEFAULT '[]',
		summary_right JSONB NOT NULL DEFAULT '[]',
		coverage_left INTEGER NOT NULL DEFAULT 0,
		coverage_center INTEGER NOT NULL DEFAULT 0,
		coverage_right INTEGER NOT NULL DEFAULT 0,
		sources JSONB,
		size INTEGER NOT NULL DEFAULT 0,
		generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clusters_generated_at ON clusters (generated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS cluster_articles (
		cluster_id TEXT NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
		article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (cluster_id, article_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cluster_articles_cluster ON cluster_articles (cluster_id, position)`,
}

// Migrate creates the schema if it does not exist.
func (g *Gateway) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
