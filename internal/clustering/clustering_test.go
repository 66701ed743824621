package clustering

import (
	"reflect"
	"testing"

	"duckwire/internal/core"
)

func art(title, desc, url string) core.Article {
	return core.Article{Title: title, Description: desc, URL: url}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The Navy-flotilla was intercepted, at 0300 hours!")
	want := []string{"navy", "flotilla", "intercepted", "0300", "hours"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize() = %v, want %v", tokens, want)
	}
}

func TestTokenizeDropsShortAndStopwords(t *testing.T) {
	tokens := Tokenize("it is an ox and the cat")
	want := []string{"cat"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize() = %v, want %v", tokens, want)
	}
}

func TestBuildClustersGroupsSimilarArticles(t *testing.T) {
	articles := []core.Article{
		art("Navy flotilla intercepted near Gaza coast",
			"Activists aboard the flotilla detained by navy forces", "https://a.example/1"),
		art("Gaza flotilla intercepted by navy, activists detained",
			"Navy forces stopped the aid flotilla near the coast", "https://b.example/2"),
		art("Stock markets rally as tech shares surge",
			"Investors cheered quarterly earnings across the sector", "https://c.example/3"),
	}

	clusters := BuildClusters(articles, DefaultOptions())
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Size != 2 || clusters[1].Size != 1 {
		t.Errorf("expected sizes [2 1], got [%d %d]", clusters[0].Size, clusters[1].Size)
	}
	if clusters[1].Articles[0].URL != "https://c.example/3" {
		t.Errorf("unrelated article landed in the wrong cluster")
	}
}

func TestBuildClustersDeterministic(t *testing.T) {
	articles := []core.Article{
		art("Election results contested in three states", "Recounts ordered after narrow margins", "u1"),
		art("Contested election results trigger recounts", "Three states order recounts over narrow margins", "u2"),
		art("Volcano eruption disrupts island flights", "Ash cloud grounds planes", "u3"),
	}

	first := BuildClusters(articles, DefaultOptions())
	second := BuildClusters(articles, DefaultOptions())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same input produced different clusterings")
	}
}

func TestClusterIDStableAndContentDerived(t *testing.T) {
	a := []core.Article{art("First story", "", "u1"), art("Second story", "", "u2")}
	if got, again := ClusterID(a), ClusterID(a); got != again {
		t.Errorf("ClusterID not stable: %s vs %s", got, again)
	}
	if len(ClusterID(a)) != 12 { // "c_" + 10 hex chars
		t.Errorf("unexpected id length: %s", ClusterID(a))
	}
	b := []core.Article{art("First story", "", "u1")}
	if ClusterID(a) == ClusterID(b) {
		t.Errorf("different member sets produced the same id")
	}
	// Title falls back to URL when empty.
	c := []core.Article{art("", "", "u1")}
	d := []core.Article{art("", "", "u2")}
	if ClusterID(c) == ClusterID(d) {
		t.Errorf("URL fallback not applied for untitled articles")
	}
}

func TestBuildClustersJoinsAtExactThreshold(t *testing.T) {
	// Both articles tokenize to the single shared term "shutdown", whose
	// idf is ln(3/3)+1 = 1 exactly, so the normalized vectors are identical
	// unit vectors and the cosine is exactly 1.0 with no rounding. With the
	// threshold at exactly 1.0 they must still join, proving the comparison
	// is >= rather than >.
	articles := []core.Article{
		art("Shutdown", "", "u1"),
		art("The shutdown", "", "u2"),
	}
	clusters := BuildClusters(articles, Options{SimilarityThreshold: 1.0, MaxClusters: 10})
	if len(clusters) != 1 || clusters[0].Size != 2 {
		t.Fatalf("expected one cluster of 2 at exact threshold, got %+v", clusters)
	}
}

func TestBuildClustersDefaultThresholdBoundary(t *testing.T) {
	// Two-article corpora engineered around the 0.28 default. With two
	// documents a term in both has idf 1 and a term in one has idf
	// u = ln(1.5)+1, so two articles sharing 7 terms with 9 unique terms
	// each have cosine 7/(7+9u^2) ~= 0.2825, just above the threshold.
	joins := []core.Article{
		art("Ferry strike halts harbor routes",
			"Dockworkers union walkout paralyzes terminals as commuters picket operators over morning overtime dispute", "u1"),
		art("Harbor ferry strike halts morning routes",
			"Stranded commuters and officials scramble for buses or alternative crossings as travelers are delayed at the piers", "u2"),
	}
	clusters := BuildClusters(joins, DefaultOptions())
	if len(clusters) != 1 || clusters[0].Size != 2 {
		t.Fatalf("expected one cluster of 2 just above the default threshold, got %+v", clusters)
	}

	// One extra unique term in the second article drops the cosine to
	// 7/sqrt((7+9u^2)(7+10u^2)) ~= 0.2719, just below the threshold, so the
	// pair stays apart.
	separates := []core.Article{
		joins[0],
		art("Harbor ferry strike halts morning routes",
			"Stranded commuters and officials scramble for weekend buses or alternative crossings as travelers are delayed at the piers", "u2"),
	}
	clusters = BuildClusters(separates, DefaultOptions())
	if len(clusters) != 2 {
		t.Fatalf("expected 2 singleton clusters just below the default threshold, got %+v", clusters)
	}
}

func TestBuildClustersZeroOverlapStaysSingleton(t *testing.T) {
	articles := []core.Article{
		art("submarine cable repaired offshore", "engineers restore connectivity", "u1"),
		art("championship final ends penalties", "goalkeeper saves decide winner", "u2"),
	}
	clusters := BuildClusters(articles, Options{SimilarityThreshold: 0.01, MaxClusters: 10})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 singleton clusters, got %d", len(clusters))
	}
}

func TestBuildClustersTrimsToMaxClusters(t *testing.T) {
	// Four groups with disjoint vocabularies; sizes 3, 2, 1, 1.
	articles := []core.Article{
		art("alpine glacier retreat accelerates", "glacier retreat measured yearly", "g1a"),
		art("glacier retreat accelerates alpine melt", "alpine glacier melt accelerates", "g1b"),
		art("alpine glacier melt retreat accelerates", "yearly glacier retreat alpine", "g1c"),
		art("wheat harvest exceeds forecast", "farmers report record wheat harvest", "g2a"),
		art("record wheat harvest beats forecast", "wheat harvest exceeds farmer forecast", "g2b"),
		art("opera house reopens downtown", "renovated opera stage debuts", "g3a"),
		art("satellite launch postponed tonight", "rocket weather delay announced", "g4a"),
	}

	clusters := BuildClusters(articles, Options{SimilarityThreshold: 0.28, MaxClusters: 3})
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters after trim, got %d", len(clusters))
	}
	if clusters[0].Size != 3 || clusters[1].Size != 2 {
		t.Errorf("expected sizes [3 2 ...], got [%d %d]", clusters[0].Size, clusters[1].Size)
	}
	// Equal-size singletons keep formation order; the opera article formed
	// its cluster before the satellite one.
	if clusters[2].Articles[0].URL != "g3a" {
		t.Errorf("formation-order tie broken: got %s", clusters[2].Articles[0].URL)
	}
}

func TestBuildClustersEmptyInput(t *testing.T) {
	if got := BuildClusters(nil, DefaultOptions()); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}
