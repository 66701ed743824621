package core

import "time"

// Article is the normalized unit of content produced by a provider adapter.
type Article struct {
	Provider    string `json:"provider"`              // Adapter identifier (e.g., "gnews.io")
	ID          string `json:"id,omitempty"`          // Provider-local or URL-derived identifier
	Title       string `json:"title"`                 // Article title
	Description string `json:"description"`           // Article description or summary
	URL         string `json:"url"`                   // Canonical URL, the de-dup and storage key
	ImageURL    string `json:"imageUrl,omitempty"`    // Lead image, if any
	PublishedAt string `json:"publishedAt,omitempty"` // RFC3339 timestamp, empty if unparseable
	SourceName  string `json:"sourceName,omitempty"`  // Outlet name
	SourceURL   string `json:"sourceUrl,omitempty"`   // Outlet homepage
	Author      string `json:"author,omitempty"`      // Author, if reported
	Topic       string `json:"topic,omitempty"`       // Originating query
}

// AggregateResult is the output of one aggregation run across all providers.
type AggregateResult struct {
	FetchedAt string    `json:"fetchedAt"` // RFC3339 timestamp of the run
	Count     int       `json:"count"`     // Number of deduplicated items
	Items     []Article `json:"items"`     // Deduplicated, newest-first articles
}

// PerspectiveSummary holds summary bullets bucketed by political perspective.
type PerspectiveSummary struct {
	Left   []string `json:"left"`
	Center []string `json:"center"`
	Right  []string `json:"right"`
}

// Coverage counts how many member articles the summarizer attributed to each
// perspective. Counts are best-effort, not a strict partition of the cluster.
type Coverage struct {
	Left   int `json:"left"`
	Center int `json:"center"`
	Right  int `json:"right"`
}

// PerspectiveSources lists outlet names per perspective, best-effort.
type PerspectiveSources struct {
	Left   []string `json:"left"`
	Center []string `json:"center"`
	Right  []string `json:"right"`
}

// Cluster is a set of articles judged to cover the same story.
// The ID is a content-derived hash of member titles/URLs, so identical
// article sets yield identical ids across runs.
type Cluster struct {
	ID          string             `json:"id"`
	Size        int                `json:"size"`
	Headline    string             `json:"headline,omitempty"`
	Summary     PerspectiveSummary `json:"summary"`
	Coverage    Coverage           `json:"coverage"`
	Sources     PerspectiveSources `json:"sources"`
	Articles    []Article          `json:"articles"`
	GeneratedAt string             `json:"generatedAt,omitempty"` // Set at persistence time
}

// ClusterSet is the payload returned by the refresh and read boundaries.
type ClusterSet struct {
	GeneratedAt string    `json:"generatedAt"`
	Count       int       `json:"count"`
	Clusters    []Cluster `json:"clusters"`
}

// Bias rating labels, ordered far-left to far-right.
const (
	RatingFarLeft      = "far-left"
	RatingLeftLeaning  = "left-leaning"
	RatingLeftCenter   = "left-center"
	RatingCenter       = "center"
	RatingRightCenter  = "right-center"
	RatingRightLeaning = "right-leaning"
	RatingFarRight     = "far-right"
)

// Ratings lists all valid bias rating labels in order.
var Ratings = []string{
	RatingFarLeft,
	RatingLeftLeaning,
	RatingLeftCenter,
	RatingCenter,
	RatingRightCenter,
	RatingRightLeaning,
	RatingFarRight,
}

// RatingScores maps each rating label to its position on the -3..3 axis.
var RatingScores = map[string]int{
	RatingFarLeft:      -3,
	RatingLeftLeaning:  -2,
	RatingLeftCenter:   -1,
	RatingCenter:       0,
	RatingRightCenter:  1,
	RatingRightLeaning: 2,
	RatingFarRight:     3,
}

// BiasVote is one append-only stake-weighted vote on a provider's bias.
type BiasVote struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Rating    string    `json:"rating"`
	Stake     float64   `json:"stake"`
	Voter     string    `json:"voter,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BiasSummary is the aggregated view of all votes for one provider.
type BiasSummary struct {
	Counts       map[string]int `json:"counts"`
	AverageScore float64        `json:"averageScore"`
	AverageLabel string         `json:"averageLabel"`
	TotalStake   float64        `json:"totalStake"`
	Voters       int            `json:"voters"`
}

// CoarseLabel collapses a 7-point rating label to left/center/right.
func CoarseLabel(rating string) string {
	switch s := RatingScores[rating]; {
	case s < 0:
		return "left"
	case s > 0:
		return "right"
	default:
		return "center"
	}
}
