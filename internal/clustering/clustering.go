// Package clustering groups articles into story clusters using greedy
// single-linkage clustering over TF-IDF vectors of title + description.
package clustering

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"sort"
	"strings"

	"duckwire/internal/core"
)

const (
	// DefaultSimilarityThreshold is the minimum cosine similarity for an
	// article to join an existing cluster.
	DefaultSimilarityThreshold = 0.28
	// DefaultMaxClusters bounds how many clusters one run surfaces.
	DefaultMaxClusters = 20
)

// Options configures one clustering run.
type Options struct {
	SimilarityThreshold float64
	MaxClusters         int
}

// DefaultOptions returns the standard clustering parameters.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxClusters:         DefaultMaxClusters,
	}
}

// vector is a sparse L2-normalized term-weight vector.
type vector map[string]float64

// member pairs an article with its vector inside a forming cluster.
type member struct {
	article core.Article
	vec     vector
}

// BuildClusters assigns articles to clusters in input order: each article
// joins the cluster holding its single most similar member when that
// similarity reaches the threshold, otherwise it starts a new cluster.
// Clusters are returned largest first, trimmed to MaxClusters; smaller
// clusters beyond the cut simply do not surface this run.
//
// Cluster ids are content-derived, so the same article set produces the
// same id across runs. A shifted input set yields a new id with no linkage
// to the previous one; story identity is per-run, not historical.
func BuildClusters(articles []core.Article, opts Options) []core.Cluster {
	if len(articles) == 0 {
		return nil
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.MaxClusters <= 0 {
		opts.MaxClusters = DefaultMaxClusters
	}

	vectors := vectorize(articles)

	var clusters [][]member
	for i, art := range articles {
		vec := vectors[i]
		bestIdx := -1
		bestSim := 0.0

		for c, cluster := range clusters {
			// single-linkage: max similarity to any member
			maxSim := 0.0
			for _, m := range cluster {
				if s := cosine(vec, m.vec); s > maxSim {
					maxSim = s
				}
			}
			if maxSim > bestSim {
				bestSim = maxSim
				bestIdx = c
			}
		}

		if bestIdx >= 0 && bestSim >= opts.SimilarityThreshold {
			clusters[bestIdx] = append(clusters[bestIdx], member{article: art, vec: vec})
		} else {
			clusters = append(clusters, []member{{article: art, vec: vec}})
		}
	}

	// Largest first; stable sort keeps formation order for equal sizes.
	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i]) > len(clusters[j])
	})
	if len(clusters) > opts.MaxClusters {
		clusters = clusters[:opts.MaxClusters]
	}

	out := make([]core.Cluster, 0, len(clusters))
	for _, cluster := range clusters {
		members := make([]core.Article, 0, len(cluster))
		for _, m := range cluster {
			members = append(members, m.article)
		}
		out = append(out, core.Cluster{
			ID:       ClusterID(members),
			Size:     len(members),
			Articles: members,
		})
	}
	return out
}

// ClusterID derives a short stable hash from the member titles/URLs.
func ClusterID(articles []core.Article) string {
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		key := a.Title
		if key == "" {
			key = a.URL
		}
		parts = append(parts, key)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "c_" + hex.EncodeToString(sum[:])[:10]
}

// Tokenize lowercases text and extracts alphanumeric tokens longer than two
// characters, excluding stopwords.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 2 {
			word := b.String()
			if _, stop := stopwords[word]; !stop {
				tokens = append(tokens, word)
			}
		}
		b.Reset()
	}
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// vectorize builds one L2-normalized tf-idf vector per article over the
// batch vocabulary, with idf(term) = ln((N+1)/(df+1)) + 1.
func vectorize(articles []core.Article) []vector {
	tfs := make([]map[string]int, len(articles))
	df := make(map[string]int)
	for i, a := range articles {
		tf := make(map[string]int)
		for _, tok := range Tokenize(a.Title + " " + a.Description) {
			tf[tok]++
		}
		tfs[i] = tf
		for term := range tf {
			df[term]++
		}
	}

	n := float64(len(articles))
	idf := make(map[string]float64, len(df))
	for term, d := range df {
		idf[term] = math.Log((n+1)/float64(d+1)) + 1
	}

	vectors := make([]vector, len(articles))
	for i, tf := range tfs {
		vec := make(vector, len(tf))
		norm := 0.0
		for term, f := range tf {
			w := float64(f) * idf[term]
			if w <= 0 {
				continue
			}
			vec[term] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for term, w := range vec {
			vec[term] = w / norm
		}
		vectors[i] = vec
	}
	return vectors
}

// cosine is the dot product of two normalized sparse vectors.
func cosine(a, b vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	dot := 0.0
	for term, w := range a {
		if v, ok := b[term]; ok {
			dot += w * v
		}
	}
	return dot
}
