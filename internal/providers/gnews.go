package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"duckwire/internal/core"
)

const gnewsBaseURL = "https://gnews.io/api/v4"

// GNews implements Provider using the gnews.io API.
type GNews struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewGNews creates a gnews.io adapter.
func NewGNews(apiKey string, client *http.Client) *GNews {
	return &GNews{apiKey: apiKey, client: client, baseURL: gnewsBaseURL}
}

// Name returns the adapter identifier.
func (g *GNews) Name() string { return "gnews.io" }

// Fetch queries gnews.io and returns normalized articles.
func (g *GNews) Fetch(ctx context.Context, query string, sinceISO string, limit int) ([]core.Article, error) {
	if g.apiKey == "" {
		return nil, nil
	}

	endpoint := "top-headlines"
	if query != "" {
		endpoint = "search"
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("lang", "en")
	if sinceISO != "" {
		params.Set("from", sinceISO)
	}
	params.Set("max", strconv.Itoa(limit))
	params.Set("apikey", g.apiKey)

	var data struct {
		Articles []struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			Image       string `json:"image"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := getJSON(ctx, g.client, g.baseURL+"/"+endpoint+"?"+params.Encode(), nil, &data); err != nil {
		return nil, err
	}

	articles := make([]core.Article, 0, len(data.Articles))
	for idx, a := range data.Articles {
		id := a.ID
		if id == "" {
			id = a.URL
		}
		if id == "" {
			id = strconv.Itoa(idx)
		}
		articles = append(articles, normalize(rawArticle{
			Provider:    g.Name(),
			ID:          id,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.Image,
			PublishedAt: a.PublishedAt,
			SourceName:  a.Source.Name,
			SourceURL:   a.Source.URL,
			Topic:       query,
		}))
	}
	return articles, nil
}
