package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"duckwire/internal/aggregate"
	"duckwire/internal/config"
	"duckwire/internal/core"
	"duckwire/internal/pipeline"
	"duckwire/internal/summarize"
	"duckwire/internal/votes"
)

// newTestServer builds a server with no database, no broker, an empty
// provider list, and the placeholder summarizer, so no test touches the
// network.
func newTestServer(t *testing.T) (*Server, *SessionSigner, *config.Config) {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.DataDir = t.TempDir()
	cfg.Clustering.SimilarityThreshold = 0.28
	cfg.Clustering.MaxClusters = 20
	cfg.Clustering.LookbackHours = 24
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.CORS.Enabled = false

	pipe := pipeline.New(cfg, aggregate.New(nil, 40), summarize.NewClient(config.AI{}), nil, nil)

	voteStore, err := votes.NewStore(filepath.Join(cfg.App.DataDir, "votes.db"), 20)
	if err != nil {
		t.Fatalf("vote store: %v", err)
	}
	t.Cleanup(func() { voteStore.Close() })

	signer := NewSessionSigner("test-secret", time.Hour)
	return New(cfg, pipe, nil, voteStore, nil, signer), signer, cfg
}

func doRequest(t *testing.T, srv *Server, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestRefreshRequiresSession(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, target := range []string{"/api/news?refresh=1", "/api/clusters?refresh=1"} {
		rec := doRequest(t, srv, http.MethodGet, target, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", target, rec.Code)
		}
		var body map[string]string
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["error"] == "" {
			t.Errorf("%s: expected structured error body", target)
		}
	}
}

func TestRefreshWithSession(t *testing.T) {
	srv, signer, _ := newTestServer(t)
	token, err := signer.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/news?refresh=1", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result core.AggregateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.FetchedAt == "" {
		t.Errorf("FetchedAt not set")
	}
}

func TestNewsFallsBackToFreshAggregation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// No snapshot on disk yet; the read path aggregates once.
	rec := doRequest(t, srv, http.MethodGet, "/api/news", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewsServesSnapshot(t *testing.T) {
	srv, _, cfg := newTestServer(t)

	want := core.AggregateResult{
		FetchedAt: "2026-08-31T00:00:00Z",
		Count:     1,
		Items:     []core.Article{{Title: "Stored", URL: "u1"}},
	}
	if err := aggregate.WriteSnapshot(cfg.App.DataDir, want); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/news", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got core.AggregateResult
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Count != 1 || got.Items[0].Title != "Stored" {
		t.Errorf("snapshot not served: %+v", got)
	}
}

func TestClustersWithoutDatabaseComputesFresh(t *testing.T) {
	srv, _, cfg := newTestServer(t)

	snapshot := core.AggregateResult{
		FetchedAt: "2026-08-31T00:00:00Z",
		Count:     2,
		Items: []core.Article{
			{Title: "Navy flotilla intercepted near coast", Description: "flotilla intercepted navy activists", URL: "u1"},
			{Title: "Flotilla intercepted by navy near coast", Description: "navy intercepted flotilla activists", URL: "u2"},
		},
	}
	if err := aggregate.WriteSnapshot(cfg.App.DataDir, snapshot); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/clusters", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var set core.ClusterSet
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if set.Count != 1 || set.Clusters[0].Size != 2 {
		t.Errorf("expected one cluster of 2, got %+v", set)
	}
	if set.Clusters[0].Headline == "" {
		t.Errorf("cluster missing headline")
	}
}

func TestClusterDetailWithoutDatabase(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/clusters/c_missing", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a database, got %d", rec.Code)
	}
}

func TestBiasVoteLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/bias-votes",
		`{"provider":"gnews.io","rating":"left-leaning","stake":100,"voter":"alice"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/bias-votes",
		`{"provider":"gnews.io","rating":"left-leaning","stake":5}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for stake below minimum, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/bias-votes", `{not json`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/bias-votes?provider=gnews.io", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Provider string           `json:"provider"`
		Summary  core.BiasSummary `json:"summary"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Summary.Voters != 1 || resp.Summary.AverageLabel != core.RatingLeftLeaning {
		t.Errorf("unexpected summary: %+v", resp.Summary)
	}
}

func TestHealthWithoutDatabase(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != "ok" || body.Checks["database"] != "not configured" {
		t.Errorf("unexpected health body: %+v", body)
	}
}
