package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"duckwire/internal/core"
	"duckwire/internal/logger"
)

const (
	// maxArticlesJSONChars bounds the article payload sent to the model.
	maxArticlesJSONChars = 16000

	systemPrompt = `You are a news clustering assistant for DuckWire.
- Output ONLY valid minified JSON matching the schema.
- Be bias-aware: summarize perspectives by Left, Center, Right.
- Keep total bullets <= 6 across all groups.
- Headline should be 10-16 words, neutral and descriptive.`

	userPromptTemplate = `Schema:
{
  "headline": string,
  "summary": { "left": string[], "center": string[], "right": string[] },
  "coverage": { "left": number, "center": number, "right": number },
  "sources": { "left": string[], "center": string[], "right": string[] }
}

Articles:
%s

Instructions:
1) Infer outlet bias from source names to estimate coverage counts and source lists.
2) Provide concise bullets; avoid redundancy.
3) If unsure of a source's bias, classify it as center.`
)

// promptArticle is the trimmed article view included in the prompt.
type promptArticle struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Result is the generation outcome as a tagged value: either a parsed
// summary document or the raw text that failed to parse. Downstream code
// must handle the unparsed case explicitly instead of trusting optional
// fields.
type Result struct {
	Parsed   bool
	Headline string
	Summary  core.PerspectiveSummary
	Coverage core.Coverage
	Sources  core.PerspectiveSources
	RawText  string
}

// SummarizeCluster asks the generation endpoint for a perspective-bucketed
// summary of one cluster and merges the outcome into the cluster. Missing
// or unparseable fields fall back to cluster-derived defaults, so the
// returned cluster always has a non-empty headline.
func (c *Client) SummarizeCluster(ctx context.Context, cluster core.Cluster) (core.Cluster, error) {
	arts := make([]promptArticle, 0, len(cluster.Articles))
	for _, a := range cluster.Articles {
		source := a.SourceName
		if source == "" {
			source = a.Provider
		}
		if source == "" {
			source = "Unknown"
		}
		arts = append(arts, promptArticle{
			Title:       a.Title,
			Source:      source,
			URL:         a.URL,
			Description: a.Description,
		})
	}

	artsJSON, err := json.Marshal(arts)
	if err != nil {
		return cluster, fmt.Errorf("failed to marshal articles: %w", err)
	}
	payload := string(artsJSON)
	if len(payload) > maxArticlesJSONChars {
		payload = payload[:maxArticlesJSONChars]
	}

	completion, err := c.ChatCompletion(ctx, []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, payload)},
	})
	if err != nil {
		return cluster, err
	}

	result := parseResult(completion.Content)
	applyResult(&cluster, result, arts)
	return cluster, nil
}

// SummarizeAll summarizes every cluster concurrently and keeps the
// successfully settled results; one cluster's failure never aborts its
// siblings.
func (c *Client) SummarizeAll(ctx context.Context, clusters []core.Cluster) []core.Cluster {
	type outcome struct {
		cluster core.Cluster
		err     error
	}

	results := make([]outcome, len(clusters))
	var wg sync.WaitGroup
	for i, cluster := range clusters {
		wg.Add(1)
		go func(slot int, cl core.Cluster) {
			defer wg.Done()
			enriched, err := c.SummarizeCluster(ctx, cl)
			results[slot] = outcome{cluster: enriched, err: err}
		}(i, cluster)
	}
	wg.Wait()

	out := make([]core.Cluster, 0, len(clusters))
	for _, r := range results {
		if r.err != nil {
			logger.Warn("cluster summarization failed", "cluster", r.cluster.ID, "error", r.err.Error())
			continue
		}
		out = append(out, r.cluster)
	}
	return out
}

// applyResult merges a generation result into the cluster, substituting
// cluster-derived defaults for anything the model did not provide.
func applyResult(cluster *core.Cluster, result Result, arts []promptArticle) {
	if result.Parsed && result.Headline != "" {
		cluster.Headline = result.Headline
	} else if len(cluster.Articles) > 0 && cluster.Articles[0].Title != "" {
		cluster.Headline = cluster.Articles[0].Title
	} else {
		cluster.Headline = "Story Cluster"
	}

	if result.Parsed {
		cluster.Summary = result.Summary
		cluster.Coverage = result.Coverage
		cluster.Sources = result.Sources
	}
	if cluster.Summary.Left == nil {
		cluster.Summary.Left = []string{}
	}
	if cluster.Summary.Center == nil {
		cluster.Summary.Center = []string{}
	}
	if cluster.Summary.Right == nil {
		cluster.Summary.Right = []string{}
	}
	if cluster.Coverage == (core.Coverage{}) && !result.Parsed {
		cluster.Coverage = core.Coverage{Center: cluster.Size}
	}
	if cluster.Sources.Left == nil && cluster.Sources.Center == nil && cluster.Sources.Right == nil {
		cluster.Sources = core.PerspectiveSources{
			Left:   []string{},
			Center: distinctSources(arts),
			Right:  []string{},
		}
	}
}

// distinctSources lists unique outlet names in first-seen order.
func distinctSources(arts []promptArticle) []string {
	seen := make(map[string]struct{}, len(arts))
	out := make([]string, 0, len(arts))
	for _, a := range arts {
		if _, ok := seen[a.Source]; ok {
			continue
		}
		seen[a.Source] = struct{}{}
		out = append(out, a.Source)
	}
	return out
}

// parseResult decodes the model output, stripping optional code fences and
// falling back to the first {...} substring before giving up. A total parse
// failure yields an Unparsed result carrying the raw text.
func parseResult(text string) Result {
	var doc struct {
		Headline string                  `json:"headline"`
		Summary  core.PerspectiveSummary `json:"summary"`
		Coverage core.Coverage           `json:"coverage"`
		Sources  core.PerspectiveSources `json:"sources"`
	}

	clean := stripFences(text)
	if err := json.Unmarshal([]byte(clean), &doc); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return Result{RawText: text}
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &doc); err != nil {
			return Result{RawText: text}
		}
	}

	return Result{
		Parsed:   true,
		Headline: doc.Headline,
		Summary:  doc.Summary,
		Coverage: doc.Coverage,
		Sources:  doc.Sources,
	}
}

func stripFences(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	}
	return strings.TrimSpace(clean)
}
