// Package aggregate fans provider fetches out concurrently, merges the
// results, deduplicates them, and orders them newest first.
package aggregate

import (
	"context"
	"sort"
	"sync"
	"time"

	"duckwire/internal/core"
	"duckwire/internal/logger"
	"duckwire/internal/providers"
)

// Aggregator runs one fetch per (provider x query) pair and joins the
// outcomes. A failing provider call is dropped, never fatal for the batch.
type Aggregator struct {
	providers      []providers.Provider
	maxPerProvider int
}

// New creates an Aggregator over the given providers.
func New(list []providers.Provider, maxPerProvider int) *Aggregator {
	if maxPerProvider <= 0 {
		maxPerProvider = 40
	}
	return &Aggregator{providers: list, maxPerProvider: maxPerProvider}
}

// FetchAll issues all (provider x query) calls concurrently, waits for every
// outcome, and keeps only the successes. The merged set is deduplicated by
// URL (title fallback, first occurrence wins) and sorted by publication time
// descending with unknown timestamps last.
func (a *Aggregator) FetchAll(ctx context.Context, queries []string, sinceISO string) core.AggregateResult {
	type outcome struct {
		provider string
		query    string
		articles []core.Article
		err      error
	}

	tasks := len(a.providers) * len(queries)
	results := make([]outcome, tasks)

	var wg sync.WaitGroup
	i := 0
	for _, p := range a.providers {
		for _, q := range queries {
			wg.Add(1)
			go func(slot int, p providers.Provider, q string) {
				defer wg.Done()
				articles, err := p.Fetch(ctx, q, sinceISO, a.maxPerProvider)
				results[slot] = outcome{provider: p.Name(), query: q, articles: articles, err: err}
			}(i, p, q)
			i++
		}
	}
	wg.Wait()

	var all []core.Article
	for _, r := range results {
		if r.err != nil {
			logger.Warn("provider fetch failed", "provider", r.provider, "query", r.query, "error", r.err.Error())
			continue
		}
		all = append(all, r.articles...)
	}

	deduped := Dedupe(all)
	sortByPublished(deduped)

	return core.AggregateResult{
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
		Count:     len(deduped),
		Items:     deduped,
	}
}

// Dedupe removes duplicate articles keyed by URL, falling back to title
// when the URL is absent. The first occurrence wins and input order is
// preserved, so deduplicating twice equals deduplicating once.
func Dedupe(articles []core.Article) []core.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]core.Article, 0, len(articles))
	for _, a := range articles {
		key := a.URL
		if key == "" {
			key = a.Title
		}
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// sortByPublished orders newest first; articles without a parseable
// timestamp sort as epoch zero, i.e. last.
func sortByPublished(articles []core.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return publishedUnix(articles[i]) > publishedUnix(articles[j])
	})
}

func publishedUnix(a core.Article) int64 {
	if a.PublishedAt == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return 0
	}
	return t.Unix()
}
