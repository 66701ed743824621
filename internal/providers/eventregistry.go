package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"duckwire/internal/core"
)

const eventRegistryBaseURL = "https://eventregistry.org/json/article"

// EventRegistry implements Provider using the Event Registry (NewsAPI.ai)
// article endpoint.
type EventRegistry struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewEventRegistry creates an Event Registry adapter.
func NewEventRegistry(apiKey string, client *http.Client) *EventRegistry {
	return &EventRegistry{apiKey: apiKey, client: client, baseURL: eventRegistryBaseURL}
}

// Name returns the adapter identifier.
func (e *EventRegistry) Name() string { return "newsapi.ai" }

// Fetch queries Event Registry and returns normalized articles.
func (e *EventRegistry) Fetch(ctx context.Context, query string, sinceISO string, limit int) ([]core.Article, error) {
	if e.apiKey == "" {
		return nil, nil
	}
	if limit > 100 {
		limit = 100
	}

	// Event Registry takes a JSON query document in a query parameter.
	var queryObj map[string]any
	if query != "" {
		queryObj = map[string]any{"$query": map[string]any{"keyword": query, "keywordLoc": "title"}}
	} else {
		queryObj = map[string]any{"$query": map[string]any{"conceptUri": "http://en.wikipedia.org/wiki/News"}}
	}
	queryJSON, err := json.Marshal(queryObj)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("action", "getArticles")
	params.Set("resultType", "articles")
	params.Set("articlesCount", strconv.Itoa(limit))
	params.Set("articlesSortBy", "date")
	params.Set("lang", "eng")
	params.Set("apiKey", e.apiKey)
	params.Set("query", string(queryJSON))

	var data struct {
		Articles struct {
			Results []eventRegistryItem `json:"results"`
		} `json:"articles"`
		Results []eventRegistryItem `json:"results"`
	}
	if err := getJSON(ctx, e.client, e.baseURL+"?"+params.Encode(), nil, &data); err != nil {
		return nil, err
	}

	items := data.Articles.Results
	if len(items) == 0 {
		items = data.Results
	}

	articles := make([]core.Article, 0, len(items))
	for idx, a := range items {
		id := a.URI
		if id == "" {
			id = a.URL
		}
		if id == "" {
			id = strconv.Itoa(idx)
		}
		desc := a.Body
		if desc == "" {
			desc = a.Summary
		}
		published := a.DateTimePub
		if published == "" {
			published = a.Date
		}
		articles = append(articles, normalize(rawArticle{
			Provider:    e.Name(),
			ID:          id,
			Title:       a.Title,
			Description: desc,
			URL:         a.URL,
			ImageURL:    a.Image,
			PublishedAt: published,
			SourceName:  a.Source.Title,
			Topic:       query,
		}))
	}
	return articles, nil
}

type eventRegistryItem struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	DateTimePub string `json:"dateTimePub"`
	Date        string `json:"date"`
	Source      struct {
		Title string `json:"title"`
	} `json:"source"`
}
