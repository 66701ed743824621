package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"duckwire/internal/core"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIOrg implements Provider using the newsapi.org "everything" endpoint.
type NewsAPIOrg struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewNewsAPIOrg creates a newsapi.org adapter.
func NewNewsAPIOrg(apiKey string, client *http.Client) *NewsAPIOrg {
	return &NewsAPIOrg{apiKey: apiKey, client: client, baseURL: newsAPIBaseURL}
}

// Name returns the adapter identifier.
func (n *NewsAPIOrg) Name() string { return "newsapi.org" }

// Fetch queries newsapi.org and returns normalized articles.
func (n *NewsAPIOrg) Fetch(ctx context.Context, query string, sinceISO string, limit int) ([]core.Article, error) {
	if n.apiKey == "" {
		return nil, nil
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if sinceISO != "" {
		params.Set("from", sinceISO)
	}
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(limit))

	var data struct {
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			URLToImage  string `json:"urlToImage"`
			PublishedAt string `json:"publishedAt"`
			Author      string `json:"author"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	headers := map[string]string{"X-Api-Key": n.apiKey}
	if err := getJSON(ctx, n.client, n.baseURL+"/everything?"+params.Encode(), headers, &data); err != nil {
		return nil, err
	}

	articles := make([]core.Article, 0, len(data.Articles))
	for idx, a := range data.Articles {
		id := a.URL
		if id == "" {
			id = strconv.Itoa(idx)
		}
		articles = append(articles, normalize(rawArticle{
			Provider:    n.Name(),
			ID:          id,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			Topic:       query,
		}))
	}
	return articles, nil
}
