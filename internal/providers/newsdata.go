package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"duckwire/internal/core"
)

const newsdataBaseURL = "https://newsdata.io/api/1/news"

// Newsdata implements Provider using the newsdata.io API.
type Newsdata struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewNewsdata creates a newsdata.io adapter.
func NewNewsdata(apiKey string, client *http.Client) *Newsdata {
	return &Newsdata{apiKey: apiKey, client: client, baseURL: newsdataBaseURL}
}

// Name returns the adapter identifier.
func (n *Newsdata) Name() string { return "newsdata.io" }

// newsdataItem tolerates the field-name drift between newsdata.io response
// variants (articles vs results, link vs url, pubDate vs publishedAt).
type newsdataItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	ImageURL    string `json:"image_url"`
	Image       string `json:"image"`
	PubDate     string `json:"pubDate"`
	PublishedAt string `json:"publishedAt"`
	SourceID    string `json:"source_id"`
	Creator     any    `json:"creator"`
	Author      string `json:"author"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

// Fetch queries newsdata.io and returns normalized articles.
func (n *Newsdata) Fetch(ctx context.Context, query string, sinceISO string, limit int) ([]core.Article, error) {
	if n.apiKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("apikey", n.apiKey)
	if query != "" {
		params.Set("q", query)
	}
	params.Set("language", "en")

	var data struct {
		Articles []newsdataItem `json:"articles"`
		Results  []newsdataItem `json:"results"`
	}
	if err := getJSON(ctx, n.client, n.baseURL+"?"+params.Encode(), nil, &data); err != nil {
		return nil, err
	}

	items := data.Articles
	if len(items) == 0 {
		items = data.Results
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	articles := make([]core.Article, 0, len(items))
	for idx, a := range items {
		link := a.URL
		if link == "" {
			link = a.Link
		}
		id := a.ID
		if id == "" {
			id = link
		}
		if id == "" {
			id = strconv.Itoa(idx)
		}
		desc := a.Description
		if desc == "" {
			desc = a.Content
		}
		img := a.ImageURL
		if img == "" {
			img = a.Image
		}
		published := a.PubDate
		if published == "" {
			published = a.PublishedAt
		}
		sourceName := a.Source.Name
		if sourceName == "" {
			sourceName = a.SourceID
		}
		author := a.Author
		if author == "" {
			author = firstString(a.Creator)
		}
		articles = append(articles, normalize(rawArticle{
			Provider:    n.Name(),
			ID:          id,
			Title:       a.Title,
			Description: desc,
			URL:         link,
			ImageURL:    img,
			PublishedAt: published,
			SourceName:  sourceName,
			SourceURL:   a.Source.URL,
			Author:      author,
			Topic:       query,
		}))
	}
	return articles, nil
}

// firstString extracts a string from a value that may be a string or a list
// of strings (newsdata reports creator both ways).
func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				return s
			}
		}
	}
	return ""
}
