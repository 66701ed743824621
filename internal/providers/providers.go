// Package providers contains one adapter per external news source. Each
// adapter translates that provider's API response into the common Article
// shape. Adapters are constructed only when their credential is configured;
// a missing key disables the provider rather than erroring.
package providers

import (
	"context"
	"net/http"
	"time"

	"duckwire/internal/config"
	"duckwire/internal/core"
)

// Provider is the capability every news adapter implements.
type Provider interface {
	// Name returns the adapter identifier recorded on fetched articles.
	Name() string
	// Fetch returns normalized articles for one query. sinceISO bounds
	// results when the upstream API supports it and may be empty. Fetch
	// never fails on per-item malformed data; it only errors when the
	// call itself fails after retries.
	Fetch(ctx context.Context, query string, sinceISO string, limit int) ([]core.Article, error)
}

// FromConfig builds the list of enabled providers from configuration.
func FromConfig(cfg config.Providers) []Provider {
	client := &http.Client{Timeout: config.ParseDuration(cfg.Timeout, 30*time.Second)}

	var list []Provider
	if cfg.NewsAPIOrgKey != "" {
		list = append(list, NewNewsAPIOrg(cfg.NewsAPIOrgKey, client))
	}
	if cfg.GNewsKey != "" {
		list = append(list, NewGNews(cfg.GNewsKey, client))
	}
	if cfg.NewsdataKey != "" {
		list = append(list, NewNewsdata(cfg.NewsdataKey, client))
	}
	if cfg.ChainGPTKey != "" {
		list = append(list, NewChainGPT(cfg.ChainGPTKey, client))
	}
	if cfg.EventRegKey != "" {
		list = append(list, NewEventRegistry(cfg.EventRegKey, client))
	}
	if len(cfg.RSSFeeds) > 0 {
		list = append(list, NewRSS(cfg.RSSFeeds, client))
	}
	return list
}
