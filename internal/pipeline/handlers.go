package pipeline

import (
	"context"
	"encoding/json"

	"duckwire/internal/core"
	"duckwire/internal/logger"
	"duckwire/internal/queue"
)

// Handlers returns the job handler for each queue. An ingestion job chains
// a clustering job on success so a single enqueue refreshes the whole
// pipeline.
func (p *Pipeline) Handlers(q *queue.Queues) map[string]queue.Handler {
	return map[string]queue.Handler{
		queue.Ingestion: func(ctx context.Context, _ json.RawMessage) error {
			result, err := p.RefreshNews(ctx)
			if err != nil {
				return err
			}
			logger.Info("ingestion job done", "articles", result.Count)
			if q != nil {
				if _, err := q.Enqueue(ctx, queue.Clustering, nil); err != nil {
					logger.Warn("failed to chain clustering job", "error", err.Error())
				}
			}
			return nil
		},
		queue.Clustering: func(ctx context.Context, payload json.RawMessage) error {
			// A job may carry its own articles; without them the handler
			// falls back to recently stored ones.
			var req struct {
				Articles []core.Article `json:"articles"`
			}
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &req); err != nil {
					return err
				}
			}

			var set core.ClusterSet
			var err error
			if len(req.Articles) > 0 {
				set, err = p.ClusterArticles(ctx, req.Articles)
			} else {
				set, err = p.RefreshClusters(ctx)
			}
			if err != nil {
				return err
			}
			logger.Info("clustering job done", "clusters", set.Count)
			return nil
		},
		queue.Verification: func(ctx context.Context, payload json.RawMessage) error {
			// Source verification is a human workflow; the job only records
			// that the referenced items are awaiting review. Items may be
			// plain ids or objects, so elements stay undecoded.
			var req struct {
				Items []json.RawMessage `json:"items"`
			}
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &req); err != nil {
					return err
				}
			}
			logger.Info("verification job done", "pending", len(req.Items))
			return nil
		},
	}
}
