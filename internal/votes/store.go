// Package votes stores stake-weighted bias ratings for news providers in a
// local SQLite database and aggregates them into per-provider summaries.
package votes

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"duckwire/internal/core"
)

// DefaultMinStake is the smallest stake a vote may carry unless configured
// otherwise.
const DefaultMinStake = 20

const schema = `
CREATE TABLE IF NOT EXISTS bias_votes (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	rating TEXT NOT NULL,
	stake REAL NOT NULL,
	voter TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bias_votes_provider ON bias_votes (provider);
`

// Store is the append-only vote ledger.
type Store struct {
	db       *sql.DB
	minStake float64
}

// NewStore opens (and creates if needed) the vote database at path. A
// non-positive minStake falls back to DefaultMinStake.
func NewStore(path string, minStake float64) (*Store, error) {
	if minStake <= 0 {
		minStake = DefaultMinStake
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, minStake: minStake}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Add validates and appends one vote. Votes are never updated or removed.
func (s *Store) Add(ctx context.Context, provider, rating string, stake float64, voter string) (core.BiasVote, error) {
	if provider == "" {
		return core.BiasVote{}, fmt.Errorf("provider required")
	}
	if _, ok := core.RatingScores[rating]; !ok {
		return core.BiasVote{}, fmt.Errorf("invalid rating %q", rating)
	}
	if stake < s.minStake {
		return core.BiasVote{}, fmt.Errorf("stake must be at least %g", s.minStake)
	}

	vote := core.BiasVote{
		ID:        uuid.New().String(),
		Provider:  provider,
		Rating:    rating,
		Stake:     stake,
		Voter:     voter,
		Timestamp: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bias_votes (id, provider, rating, stake, voter, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		vote.ID, vote.Provider, vote.Rating, vote.Stake, vote.Voter, vote.Timestamp,
	)
	if err != nil {
		return core.BiasVote{}, fmt.Errorf("failed to insert vote: %w", err)
	}
	return vote, nil
}

// Summarize aggregates all votes for one provider. Stake influence is
// dampened by square root so a single large stake cannot dominate the
// average. A provider with no votes summarizes to center.
func (s *Store) Summarize(ctx context.Context, provider string) (core.BiasSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rating, stake FROM bias_votes WHERE provider = ?`, provider)
	if err != nil {
		return core.BiasSummary{}, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	summary := core.BiasSummary{Counts: map[string]int{}}
	weightedSum := 0.0
	weightTotal := 0.0
	for rows.Next() {
		var rating string
		var stake float64
		if err := rows.Scan(&rating, &stake); err != nil {
			return core.BiasSummary{}, fmt.Errorf("failed to scan vote: %w", err)
		}
		score, ok := core.RatingScores[rating]
		if !ok {
			continue
		}
		w := math.Sqrt(stake)
		weightedSum += w * float64(score)
		weightTotal += w
		summary.Counts[rating]++
		summary.TotalStake += stake
		summary.Voters++
	}
	if err := rows.Err(); err != nil {
		return core.BiasSummary{}, err
	}

	if weightTotal > 0 {
		summary.AverageScore = weightedSum / weightTotal
	}
	summary.AverageLabel = labelForScore(summary.AverageScore)
	return summary, nil
}

// Providers lists every provider that has received at least one vote.
func (s *Store) Providers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT provider FROM bias_votes ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// labelForScore rounds a continuous score to the nearest rating label,
// clamping to the -3..3 axis.
func labelForScore(score float64) string {
	idx := int(math.Round(score)) + 3
	if idx < 0 {
		idx = 0
	}
	if idx > len(core.Ratings)-1 {
		idx = len(core.Ratings) - 1
	}
	return core.Ratings[idx]
}
