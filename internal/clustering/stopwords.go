package clustering

var stopwords = map[string]struct{}{}

func init() {
	words := []string{
		"the", "and", "for", "with", "that", "this", "are", "was", "were",
		"from", "have", "has", "had", "but", "not", "you", "your", "our",
		"their", "they", "his", "her", "its", "about", "into", "over",
		"under", "after", "before", "between", "among", "within", "without",
		"than", "then", "them", "there", "here", "what", "which", "who",
		"whom", "why", "how", "when", "where", "also", "can", "could",
		"should", "would", "may", "might", "will", "shall", "on", "in",
		"at", "to", "of", "by", "as", "is", "it", "be", "or", "an", "a",
	}
	for _, w := range words {
		stopwords[w] = struct{}{}
	}
}
