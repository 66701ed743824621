// Package pipeline wires aggregation, clustering, summarization,
// persistence, and broadcast into the two refresh operations the rest of
// the system calls.
package pipeline

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"duckwire/internal/aggregate"
	"duckwire/internal/clustering"
	"duckwire/internal/config"
	"duckwire/internal/core"
	"duckwire/internal/logger"
	"duckwire/internal/persistence"
	"duckwire/internal/realtime"
	"duckwire/internal/summarize"
)

// Pipeline owns the refresh flows. Gateway and broker are optional: without
// a database the pipeline degrades to snapshot-only operation, and without
// a broker updates simply are not broadcast.
type Pipeline struct {
	cfg        *config.Config
	aggregator *aggregate.Aggregator
	summarizer *summarize.Client
	gateway    *persistence.Gateway
	rdb        *redis.Client
}

// New assembles a pipeline. gateway and rdb may be nil.
func New(cfg *config.Config, aggregator *aggregate.Aggregator, summarizer *summarize.Client, gateway *persistence.Gateway, rdb *redis.Client) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		aggregator: aggregator,
		summarizer: summarizer,
		gateway:    gateway,
		rdb:        rdb,
	}
}

// lookback returns the article freshness window start.
func (p *Pipeline) lookback() time.Time {
	hours := p.cfg.Clustering.LookbackHours
	if hours <= 0 {
		hours = 24
	}
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
}

// RefreshNews fetches fresh articles from every configured provider, writes
// the daily snapshot, and upserts the articles into the database when one
// is configured. A missing database downgrades persistence to a warning.
func (p *Pipeline) RefreshNews(ctx context.Context) (core.AggregateResult, error) {
	since := p.lookback().Format(time.RFC3339)
	result := p.aggregator.FetchAll(ctx, p.cfg.App.Queries, since)
	logger.Info("news refresh fetched", "count", result.Count)

	if err := aggregate.WriteSnapshot(p.cfg.App.DataDir, result); err != nil {
		return result, err
	}

	if p.gateway == nil {
		logger.Warn("no database configured, skipping article persistence")
		return result, nil
	}
	ids, err := p.gateway.UpsertArticles(ctx, result.Items)
	if err != nil {
		return result, err
	}
	logger.Info("articles persisted", "written", len(ids))
	return result, nil
}

// RefreshClusters rebuilds story clusters from recent articles. Articles
// come from the database when available, otherwise from the snapshot.
func (p *Pipeline) RefreshClusters(ctx context.Context) (core.ClusterSet, error) {
	articles, err := p.recentArticles(ctx)
	if err != nil {
		return core.ClusterSet{}, err
	}
	return p.ClusterArticles(ctx, articles)
}

// ClusterArticles builds story clusters for an explicit article set,
// summarizes them, persists each cluster, and broadcasts the new set.
func (p *Pipeline) ClusterArticles(ctx context.Context, articles []core.Article) (core.ClusterSet, error) {
	clusters := clustering.BuildClusters(articles, clustering.Options{
		SimilarityThreshold: p.cfg.Clustering.SimilarityThreshold,
		MaxClusters:         p.cfg.Clustering.MaxClusters,
	})
	logger.Info("clusters built", "articles", len(articles), "clusters", len(clusters))

	clusters = p.summarizer.SummarizeAll(ctx, clusters)

	generatedAt := time.Now().UTC().Format(time.RFC3339)
	for i := range clusters {
		clusters[i].GeneratedAt = generatedAt
		if p.gateway == nil {
			continue
		}
		if err := p.gateway.UpsertCluster(ctx, clusters[i]); err != nil {
			return core.ClusterSet{}, err
		}
	}
	if p.gateway == nil {
		logger.Warn("no database configured, skipping cluster persistence")
	}

	set := core.ClusterSet{
		GeneratedAt: generatedAt,
		Count:       len(clusters),
		Clusters:    clusters,
	}
	realtime.PublishClusterUpdate(ctx, p.rdb, set)
	return set, nil
}

// recentArticles prefers the database, falling back to the snapshot when
// no database is configured.
func (p *Pipeline) recentArticles(ctx context.Context) ([]core.Article, error) {
	maxArticles := p.cfg.Clustering.MaxArticles
	if maxArticles <= 0 {
		maxArticles = 1000
	}
	if p.gateway != nil {
		return p.gateway.RecentArticles(ctx, p.lookback(), maxArticles)
	}

	snapshot, err := aggregate.ReadSnapshot(p.cfg.App.DataDir)
	if err != nil {
		return nil, err
	}
	items := snapshot.Items
	if len(items) > maxArticles {
		items = items[:maxArticles]
	}
	return items, nil
}
