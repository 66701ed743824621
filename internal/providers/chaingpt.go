package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"duckwire/internal/core"
)

const chainGPTBaseURL = "https://api.chaingpt.org/v1/news"

// ChainGPT implements Provider using the ChainGPT crypto news API.
type ChainGPT struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewChainGPT creates a ChainGPT adapter.
func NewChainGPT(apiKey string, client *http.Client) *ChainGPT {
	return &ChainGPT{apiKey: apiKey, client: client, baseURL: chainGPTBaseURL}
}

// Name returns the adapter identifier.
func (c *ChainGPT) Name() string { return "chaingpt" }

// Fetch queries ChainGPT and returns normalized articles.
func (c *ChainGPT) Fetch(ctx context.Context, query string, sinceISO string, limit int) ([]core.Article, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	params.Set("limit", strconv.Itoa(limit))
	if sinceISO != "" {
		params.Set("fetchAfter", sinceISO)
	}

	var data struct {
		Data     []chainGPTItem `json:"data"`
		Articles []chainGPTItem `json:"articles"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := getJSON(ctx, c.client, c.baseURL+"?"+params.Encode(), headers, &data); err != nil {
		return nil, err
	}

	items := data.Data
	if len(items) == 0 {
		items = data.Articles
	}

	articles := make([]core.Article, 0, len(items))
	for idx, a := range items {
		link := a.URL
		if link == "" {
			link = a.Link
		}
		img := a.ImageURL
		if img == "" {
			img = a.Image
		}
		published := a.PubDate
		if published == "" {
			published = a.CreatedAt
		}
		id := idString(a.ID)
		if id == "" {
			id = strconv.Itoa(idx)
		}
		articles = append(articles, normalize(rawArticle{
			Provider:    c.Name(),
			ID:          id,
			Title:       a.Title,
			Description: a.Description,
			URL:         link,
			ImageURL:    img,
			PublishedAt: published,
			SourceName:  a.Category.Name,
			Author:      a.Author,
			Topic:       query,
		}))
	}
	return articles, nil
}

type chainGPTItem struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Link        string      `json:"link"`
	ImageURL    string      `json:"imageUrl"`
	Image       string      `json:"image"`
	PubDate     string      `json:"pubDate"`
	CreatedAt   string      `json:"createdAt"`
	Author      string      `json:"author"`
	Category    struct {
		Name string `json:"name"`
	} `json:"category"`
}

func idString(n json.Number) string { return n.String() }
