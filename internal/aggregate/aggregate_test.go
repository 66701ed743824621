package aggregate

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"duckwire/internal/core"
	"duckwire/internal/providers"
)

// fakeProvider returns canned articles or a canned error.
type fakeProvider struct {
	name     string
	articles []core.Article
	err      error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, query, sinceISO string, limit int) ([]core.Article, error) {
	return f.articles, f.err
}

func TestDedupeFirstWins(t *testing.T) {
	articles := []core.Article{
		{Provider: "a", Title: "One", URL: "https://x/1"},
		{Provider: "b", Title: "One again", URL: "https://x/1"},
		{Provider: "a", Title: "Two", URL: "https://x/2"},
	}
	got := Dedupe(articles)
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].Provider != "a" || got[0].Title != "One" {
		t.Errorf("first occurrence did not win: %+v", got[0])
	}
}

func TestDedupeTitleFallbackAndEmptyDrop(t *testing.T) {
	articles := []core.Article{
		{Title: "Same headline"},
		{Title: "Same headline"},
		{}, // no URL, no title
	}
	got := Dedupe(articles)
	if len(got) != 1 {
		t.Errorf("expected 1 article, got %d", len(got))
	}
}

func TestDedupeIdempotent(t *testing.T) {
	articles := []core.Article{
		{Title: "A", URL: "u1"},
		{Title: "B", URL: "u2"},
		{Title: "A dup", URL: "u1"},
	}
	once := Dedupe(articles)
	twice := Dedupe(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Dedupe not idempotent: %v vs %v", once, twice)
	}
}

func TestFetchAllSortsNewestFirstUnknownLast(t *testing.T) {
	p := &fakeProvider{name: "fake", articles: []core.Article{
		{Title: "old", URL: "u1", PublishedAt: "2026-01-01T00:00:00Z"},
		{Title: "unknown", URL: "u2"},
		{Title: "new", URL: "u3", PublishedAt: "2026-06-01T00:00:00Z"},
		{Title: "garbled", URL: "u4", PublishedAt: "not-a-date"},
	}}
	agg := New([]providers.Provider{p}, 40)

	result := agg.FetchAll(context.Background(), []string{"q"}, "")
	if result.Count != 4 {
		t.Fatalf("expected 4 articles, got %d", result.Count)
	}
	order := []string{"u3", "u1", "u2", "u4"}
	for i, want := range order {
		if result.Items[i].URL != want {
			t.Errorf("position %d: got %s, want %s", i, result.Items[i].URL, want)
		}
	}
}

func TestFetchAllDropsFailingProvider(t *testing.T) {
	ok := &fakeProvider{name: "ok", articles: []core.Article{{Title: "kept", URL: "u1"}}}
	bad := &fakeProvider{name: "bad", err: fmt.Errorf("upstream down")}
	agg := New([]providers.Provider{ok, bad}, 40)

	result := agg.FetchAll(context.Background(), []string{"q"}, "")
	if result.Count != 1 || result.Items[0].URL != "u1" {
		t.Errorf("expected only the healthy provider's article, got %+v", result.Items)
	}
	if result.FetchedAt == "" {
		t.Errorf("FetchedAt not set")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := core.AggregateResult{
		FetchedAt: "2026-08-31T00:00:00Z",
		Count:     1,
		Items:     []core.Article{{Title: "A", URL: "u1", Provider: "fake"}},
	}
	if err := WriteSnapshot(dir, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	out, err := ReadSnapshot(dir)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("snapshot round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestReadSnapshotMissing(t *testing.T) {
	if _, err := ReadSnapshot(t.TempDir()); err == nil {
		t.Errorf("expected error for missing snapshot")
	}
}
