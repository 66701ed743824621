package providers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"duckwire/internal/core"
)

// RSS implements Provider over a fixed set of feed URLs. It needs no
// credential; it is enabled by configuring feed URLs and is primarily used
// by ingestion jobs monitoring first-party sources.
type RSS struct {
	feeds  []string
	parser *gofeed.Parser
}

// NewRSS creates an RSS adapter over the given feed URLs.
func NewRSS(feeds []string, client *http.Client) *RSS {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "DuckWire/1.0"
	return &RSS{feeds: feeds, parser: parser}
}

// Name returns the adapter identifier.
func (r *RSS) Name() string { return "rss" }

// Fetch pulls every configured feed and returns items matching the query
// (any significant query token in the title or description; an empty query
// matches everything). Feeds that fail to parse are skipped, not fatal.
func (r *RSS) Fetch(ctx context.Context, query string, sinceISO string, limit int) ([]core.Article, error) {
	var since time.Time
	if sinceISO != "" {
		since, _ = time.Parse(time.RFC3339, sinceISO)
	}
	terms := queryTerms(query)

	var articles []core.Article
	for _, feedURL := range r.feeds {
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			continue
		}
		for _, item := range feed.Items {
			if limit > 0 && len(articles) >= limit {
				return articles, nil
			}
			published := ""
			if item.PublishedParsed != nil {
				if !since.IsZero() && item.PublishedParsed.Before(since) {
					continue
				}
				published = item.PublishedParsed.UTC().Format(time.RFC3339)
			}
			if !matchesTerms(item.Title+" "+item.Description, terms) {
				continue
			}
			id := item.GUID
			if id == "" {
				id = item.Link
			}
			articles = append(articles, normalize(rawArticle{
				Provider:    r.Name(),
				ID:          id,
				Title:       item.Title,
				Description: item.Description,
				URL:         item.Link,
				ImageURL:    feedImage(item),
				PublishedAt: published,
				SourceName:  feed.Title,
				SourceURL:   feed.Link,
				Author:      feedAuthor(item),
				Topic:       query,
			}))
		}
	}
	return articles, nil
}

// queryTerms lowercases and splits a boolean-ish query into bare terms,
// dropping operators.
func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if f == "or" || f == "and" || f == "not" {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func matchesTerms(text string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text = strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func feedImage(item *gofeed.Item) string {
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}

func feedAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 {
		return item.Authors[0].Name
	}
	return ""
}
