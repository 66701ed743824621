// Package persistence provides the Postgres gateway for articles, clusters,
// and cluster membership links. Store errors propagate to callers
// unmodified; this layer never swallows them.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // Postgres driver

	"duckwire/internal/core"
)

// Gateway is the storage access point shared by the request path and the
// workers. Construct it once at process start and pass it by reference.
type Gateway struct {
	db *sql.DB
}

// New opens a Postgres connection pool and verifies it.
func New(connectionString string) (*Gateway, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Gateway{db: db}, nil
}

// Close releases the connection pool.
func (g *Gateway) Close() error { return g.db.Close() }

// Ping verifies connectivity.
func (g *Gateway) Ping(ctx context.Context) error { return g.db.PingContext(ctx) }

// ArticleID derives the deterministic storage id for an article URL.
func ArticleID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// UpsertArticles writes articles keyed by URL and returns the storage ids
// of the written rows. Articles without a URL are skipped.
func (g *Gateway) UpsertArticles(ctx context.Context, articles []core.Article) ([]string, error) {
	const query = `
		INSERT INTO articles (
			id, url, title, description, author, image_url, published_at,
			provider, source_name, source_url, topic, raw, date_added
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			author = EXCLUDED.author,
			image_url = EXCLUDED.image_url,
			published_at = EXCLUDED.published_at,
			provider = EXCLUDED.provider,
			source_name = EXCLUDED.source_name,
			source_url = EXCLUDED.source_url,
			topic = EXCLUDED.topic,
			raw = EXCLUDED.raw
	`

	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		raw, err := json.Marshal(a)
		if err != nil {
			return ids, fmt.Errorf("failed to marshal article: %w", err)
		}
		id := ArticleID(a.URL)
		_, err = g.db.ExecContext(ctx, query,
			id, a.URL, a.Title, a.Description, a.Author, a.ImageURL,
			publishedAtValue(a.PublishedAt), a.Provider, a.SourceName, a.SourceURL,
			a.Topic, raw, time.Now().UTC(),
		)
		if err != nil {
			return ids, fmt.Errorf("failed to upsert article %s: %w", a.URL, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RecentArticles returns articles published since the given time, newest
// first, with storage ids attached.
func (g *Gateway) RecentArticles(ctx context.Context, since time.Time, limit int) ([]core.Article, error) {
	const query = `
		SELECT id, url, title, description, author, image_url, published_at,
		       provider, source_name, source_url, topic
		FROM articles
		WHERE published_at >= $1
		ORDER BY published_at DESC
		LIMIT $2
	`
	rows, err := g.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// UpsertCluster writes the cluster row and replaces its membership links
// wholesale, all in one transaction so readers never observe a half-updated
// set. Two concurrent replacements for the same id are last-writer-wins;
// that race is accepted, not resolved.
func (g *Gateway) UpsertCluster(ctx context.Context, cluster core.Cluster) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summaryLeft, _ := json.Marshal(cluster.Summary.Left)
	summaryCenter, _ := json.Marshal(cluster.Summary.Center)
	summaryRight, _ := json.Marshal(cluster.Summary.Right)
	sources, _ := json.Marshal(cluster.Sources)

	const upsert = `
		INSERT INTO clusters (
			id, headline, summary_left, summary_center, summary_right,
			coverage_left, coverage_center, coverage_right, sources, size, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			headline = EXCLUDED.headline,
			summary_left = EXCLUDED.summary_left,
			summary_center = EXCLUDED.summary_center,
			summary_right = EXCLUDED.summary_right,
			coverage_left = EXCLUDED.coverage_left,
			coverage_center = EXCLUDED.coverage_center,
			coverage_right = EXCLUDED.coverage_right,
			sources = EXCLUDED.sources,
			size = EXCLUDED.size,
			generated_at = EXCLUDED.generated_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		cluster.ID, cluster.Headline, summaryLeft, summaryCenter, summaryRight,
		cluster.Coverage.Left, cluster.Coverage.Center, cluster.Coverage.Right,
		sources, cluster.Size, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to upsert cluster %s: %w", cluster.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cluster_articles WHERE cluster_id = $1`, cluster.ID); err != nil {
		return fmt.Errorf("failed to clear memberships for %s: %w", cluster.ID, err)
	}

	const insertLink = `INSERT INTO cluster_articles (cluster_id, article_id, position) VALUES ($1, $2, $3)`
	for pos, a := range cluster.Articles {
		articleID := a.ID
		if articleID == "" {
			articleID = ArticleID(a.URL)
		}
		if _, err := tx.ExecContext(ctx, insertLink, cluster.ID, articleID, pos); err != nil {
			return fmt.Errorf("failed to insert membership for %s: %w", cluster.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cluster upsert: %w", err)
	}
	return nil
}

// ListRecentClusters returns the most recently generated clusters with at
// most sampleSize member articles each, for listing views.
func (g *Gateway) ListRecentClusters(ctx context.Context, limit, sampleSize int) ([]core.Cluster, error) {
	const query = `
		SELECT id, headline, summary_left, summary_center, summary_right,
		       coverage_left, coverage_center, coverage_right, sources, size, generated_at
		FROM clusters
		ORDER BY generated_at DESC
		LIMIT $1
	`
	rows, err := g.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []core.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range clusters {
		members, err := g.clusterMembers(ctx, clusters[i].ID, sampleSize)
		if err != nil {
			return nil, err
		}
		clusters[i].Articles = members
	}
	return clusters, nil
}

// GetClusterDetail returns one cluster with its full ordered membership,
// or nil when the cluster does not exist.
func (g *Gateway) GetClusterDetail(ctx context.Context, id string) (*core.Cluster, error) {
	const query = `
		SELECT id, headline, summary_left, summary_center, summary_right,
		       coverage_left, coverage_center, coverage_right, sources, size, generated_at
		FROM clusters
		WHERE id = $1
	`
	rows, err := g.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	cluster, err := scanCluster(rows)
	if err != nil {
		return nil, err
	}

	members, err := g.clusterMembers(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	cluster.Articles = members
	return &cluster, nil
}

// clusterMembers loads a cluster's articles in stored position order.
// A non-positive limit returns the full membership.
func (g *Gateway) clusterMembers(ctx context.Context, clusterID string, limit int) ([]core.Article, error) {
	query := `
		SELECT a.id, a.url, a.title, a.description, a.author, a.image_url,
		       a.published_at, a.provider, a.source_name, a.source_url, a.topic
		FROM cluster_articles ca
		JOIN articles a ON a.id = ca.article_id
		WHERE ca.cluster_id = $1
		ORDER BY ca.position ASC
	`
	args := []any{clusterID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := []core.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(rows *sql.Rows) (core.Article, error) {
	var a core.Article
	var description, author, imageURL, provider, sourceName, sourceURL, topic sql.NullString
	var publishedAt sql.NullTime

	err := rows.Scan(&a.ID, &a.URL, &a.Title, &description, &author, &imageURL,
		&publishedAt, &provider, &sourceName, &sourceURL, &topic)
	if err != nil {
		return a, fmt.Errorf("failed to scan article: %w", err)
	}

	a.Description = description.String
	a.Author = author.String
	a.ImageURL = imageURL.String
	a.Provider = provider.String
	a.SourceName = sourceName.String
	a.SourceURL = sourceURL.String
	a.Topic = topic.String
	if publishedAt.Valid {
		a.PublishedAt = publishedAt.Time.UTC().Format(time.RFC3339)
	}
	return a, nil
}

func scanCluster(rows *sql.Rows) (core.Cluster, error) {
	var c core.Cluster
	var summaryLeft, summaryCenter, summaryRight, sources []byte
	var generatedAt time.Time

	err := rows.Scan(&c.ID, &c.Headline, &summaryLeft, &summaryCenter, &summaryRight,
		&c.Coverage.Left, &c.Coverage.Center, &c.Coverage.Right, &sources, &c.Size, &generatedAt)
	if err != nil {
		return c, fmt.Errorf("failed to scan cluster: %w", err)
	}

	c.Summary.Left = jsonStrings(summaryLeft)
	c.Summary.Center = jsonStrings(summaryCenter)
	c.Summary.Right = jsonStrings(summaryRight)
	if len(sources) > 0 {
		_ = json.Unmarshal(sources, &c.Sources)
	}
	c.GeneratedAt = generatedAt.UTC().Format(time.RFC3339)
	return c, nil
}

// jsonStrings decodes a JSON string array, tolerating malformed values.
func jsonStrings(data []byte) []string {
	var out []string
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// publishedAtValue converts an RFC3339 string to a nullable timestamp.
func publishedAtValue(iso string) any {
	if iso == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return nil
	}
	return t.UTC()
}
