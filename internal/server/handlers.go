package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"duckwire/internal/aggregate"
	"duckwire/internal/core"
)

var serverStartTime = time.Now()

// handleHealth reports liveness plus a database connectivity check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK
	health := "ok"

	if s.gateway != nil {
		if err := s.gateway.Ping(r.Context()); err != nil {
			checks["database"] = "error"
			status = http.StatusServiceUnavailable
			health = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	s.respondJSON(w, status, map[string]any{"status": health, "checks": checks})
}

// handleStatus reports version and uptime.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"version":  "v1.0.0",
		"uptime":   time.Since(serverStartTime).String(),
		"database": s.gateway != nil,
	})
}

// handleNews serves the aggregation snapshot. With refresh=1 and a valid
// session it re-runs the aggregation first; without a snapshot on disk it
// runs one aggregation rather than answering empty.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("refresh") == "1" {
		if !s.authorized(r) {
			s.respondError(w, http.StatusUnauthorized, "session required")
			return
		}
		result, err := s.pipe.RefreshNews(ctx)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, result)
		return
	}

	result, err := aggregate.ReadSnapshot(s.cfg.App.DataDir)
	if err != nil {
		// No snapshot yet; aggregate once instead of serving nothing.
		result, err = s.pipe.RefreshNews(ctx)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleClusters serves stored clusters, or rebuilds them with refresh=1
// and a valid session. Without a database the read path computes a fresh
// set in place of a listing.
func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("refresh") == "1" {
		if !s.authorized(r) {
			s.respondError(w, http.StatusUnauthorized, "session required")
			return
		}
		set, err := s.pipe.RefreshClusters(ctx)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, set)
		return
	}

	if s.gateway == nil {
		set, err := s.pipe.RefreshClusters(ctx)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, set)
		return
	}

	clusters, err := s.gateway.ListRecentClusters(ctx, 20, 3)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	generatedAt := ""
	if len(clusters) > 0 {
		generatedAt = clusters[0].GeneratedAt
	}
	if clusters == nil {
		clusters = []core.Cluster{}
	}
	s.respondJSON(w, http.StatusOK, core.ClusterSet{
		GeneratedAt: generatedAt,
		Count:       len(clusters),
		Clusters:    clusters,
	})
}

// handleClusterDetail serves one cluster with full membership.
func (s *Server) handleClusterDetail(w http.ResponseWriter, r *http.Request) {
	if s.gateway == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	cluster, err := s.gateway.GetClusterDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cluster == nil {
		s.respondError(w, http.StatusNotFound, "cluster not found")
		return
	}
	s.respondJSON(w, http.StatusOK, cluster)
}

// handleGetBiasVotes returns the vote summary for one provider, or for all
// voted providers when none is named.
func (s *Server) handleGetBiasVotes(w http.ResponseWriter, r *http.Request) {
	if s.voteStore == nil {
		s.respondError(w, http.StatusServiceUnavailable, "vote store not configured")
		return
	}
	ctx := r.Context()

	if provider := r.URL.Query().Get("provider"); provider != "" {
		summary, err := s.voteStore.Summarize(ctx, provider)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"provider": provider, "summary": summary})
		return
	}

	providers, err := s.voteStore.Providers(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summaries := map[string]core.BiasSummary{}
	for _, p := range providers {
		summary, err := s.voteStore.Summarize(ctx, p)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		summaries[p] = summary
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"providers": summaries})
}

// handlePostBiasVote records one stake-weighted bias vote.
func (s *Server) handlePostBiasVote(w http.ResponseWriter, r *http.Request) {
	if s.voteStore == nil {
		s.respondError(w, http.StatusServiceUnavailable, "vote store not configured")
		return
	}

	var req struct {
		Provider string  `json:"provider"`
		Rating   string  `json:"rating"`
		Stake    float64 `json:"stake"`
		Voter    string  `json:"voter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	vote, err := s.voteStore.Add(r.Context(), req.Provider, req.Rating, req.Stake, req.Voter)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, vote)
}

// authorized checks the session token from the cookie or bearer header.
func (s *Server) authorized(r *http.Request) bool {
	if s.sessions == nil {
		return false
	}
	var cookieValue string
	if c, err := r.Cookie(SessionCookie); err == nil {
		cookieValue = c.Value
	}
	return s.sessions.Verify(sessionToken(cookieValue, r.Header.Get("Authorization")))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
