package providers

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"duckwire/internal/core"
)

// rawArticle carries provider-specific field values before normalization.
type rawArticle struct {
	Provider    string
	ID          string
	Title       string
	Description string
	URL         string
	ImageURL    string
	PublishedAt string
	SourceName  string
	SourceURL   string
	Author      string
	Topic       string
}

// timestampLayouts are tried in order when a provider reports a
// non-RFC3339 publication time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// toISODate normalizes a provider timestamp to RFC3339 UTC, or returns the
// empty string when the value cannot be parsed. It never fails.
func toISODate(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// stripHTML removes markup from provider descriptions. Some providers embed
// HTML fragments in description fields; the pipeline only wants text.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// normalize converts a rawArticle into the common Article shape with safe
// defaults. Articles are never mutated after this point.
func normalize(raw rawArticle) core.Article {
	return core.Article{
		Provider:    raw.Provider,
		ID:          raw.ID,
		Title:       strings.TrimSpace(raw.Title),
		Description: stripHTML(strings.TrimSpace(raw.Description)),
		URL:         strings.TrimSpace(raw.URL),
		ImageURL:    raw.ImageURL,
		PublishedAt: toISODate(raw.PublishedAt),
		SourceName:  raw.SourceName,
		SourceURL:   raw.SourceURL,
		Author:      raw.Author,
		Topic:       raw.Topic,
	}
}
