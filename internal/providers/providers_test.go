package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"duckwire/internal/config"
)

func TestFromConfigSkipsUnconfigured(t *testing.T) {
	list := FromConfig(config.Providers{})
	if len(list) != 0 {
		t.Errorf("expected no providers without credentials, got %d", len(list))
	}

	list = FromConfig(config.Providers{GNewsKey: "k", RSSFeeds: []string{"https://x/feed"}})
	if len(list) != 2 {
		t.Errorf("expected 2 providers, got %d", len(list))
	}
}

func TestGNewsFetchWithoutKeyIsEmpty(t *testing.T) {
	g := NewGNews("", http.DefaultClient)
	articles, err := g.Fetch(context.Background(), "q", "", 10)
	if err != nil || articles != nil {
		t.Errorf("expected (nil, nil) without key, got (%v, %v)", articles, err)
	}
}

func TestGNewsFetchRetriesRateLimit(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"articles":[{"title":"T","url":"https://x/1","publishedAt":"2026-08-30T12:00:00Z","source":{"name":"S"}}]}`))
	}))
	defer ts.Close()

	g := NewGNews("key", ts.Client())
	g.baseURL = ts.URL

	articles, err := g.Fetch(context.Background(), "bitcoin", "", 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected retry after 429, got %d calls", calls)
	}
	if len(articles) != 1 || articles[0].SourceName != "S" {
		t.Errorf("unexpected articles: %+v", articles)
	}
	if articles[0].Provider != "gnews.io" || articles[0].Topic != "bitcoin" {
		t.Errorf("provenance fields not stamped: %+v", articles[0])
	}
}

func TestGNewsFetchFailsOnClientError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	g := NewGNews("key", ts.Client())
	g.baseURL = ts.URL

	if _, err := g.Fetch(context.Background(), "q", "", 10); err == nil {
		t.Errorf("expected error for 401")
	}
}

func TestNewsdataFetchToleratesVariants(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// results variant, link instead of url, creator as a list
		w.Write([]byte(`{"results":[
			{"title":"A","link":"https://x/a","pubDate":"2026-08-30 10:00:00","source_id":"outlet","creator":["Jo Writer"]},
			{"title":"","link":"","creator":42}
		]}`))
	}))
	defer ts.Close()

	n := NewNewsdata("key", ts.Client())
	n.baseURL = ts.URL

	articles, err := n.Fetch(context.Background(), "q", "", 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].URL != "https://x/a" || articles[0].SourceName != "outlet" || articles[0].Author != "Jo Writer" {
		t.Errorf("variant fields not mapped: %+v", articles[0])
	}
	if articles[0].PublishedAt != "2026-08-30T10:00:00Z" {
		t.Errorf("pubDate not normalized: %q", articles[0].PublishedAt)
	}
	// Malformed second item survives normalization with empty fields.
	if articles[1].Author != "" || articles[1].PublishedAt != "" {
		t.Errorf("malformed item should normalize to empty fields: %+v", articles[1])
	}
}

func TestToISODate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2026-08-30T12:00:00Z", "2026-08-30T12:00:00Z"},
		{"2026-08-30 12:00:00", "2026-08-30T12:00:00Z"},
		{"2026-08-30", "2026-08-30T00:00:00Z"},
		{"yesterday-ish", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := toISODate(c.in); got != c.want {
			t.Errorf("toISODate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	if got := stripHTML("<p>Hello <b>world</b></p>"); got != "Hello world" {
		t.Errorf("stripHTML: got %q", got)
	}
	if got := stripHTML("plain text stays"); got != "plain text stays" {
		t.Errorf("stripHTML touched plain text: %q", got)
	}
}
