package knowledge

import (
	"math"
	"sort"

	"github.com/issueops/backend/internal/storage/models"
)

// Scoring constants. These are fixed design values; changing them changes
// ranking output, so they are named rather than inlined.
const (
	// keyword overlap dominates, historical quality refines, popularity
	// nudges.
	keywordWeight = 0.6
	ratingWeight  = 0.3
	usageWeight   = 0.1

	// maxRatingValue normalizes the 1-5 star scale to [0,1].
	maxRatingValue = 5.0

	// usageNormalization caps the popularity signal: 10 or more retrievals
	// count the same.
	usageNormalization = 10.0
)

// ScoreEntry blends lexical overlap, average historical rating and usage
// frequency into a single relevance score in [0,1], and reports the matched
// keywords (sorted). Pure function, no side effects.
func ScoreEntry(queryKeywords map[string]struct{}, entry models.KnowledgeEntry) (float64, []string) {
	entryKeywords := ExtractKeywords(entry.Content)

	var matched []string
	for keyword := range queryKeywords {
		if _, ok := entryKeywords[keyword]; ok {
			matched = append(matched, keyword)
		}
	}
	sort.Strings(matched)

	denominator := len(queryKeywords)
	if len(entryKeywords) > denominator {
		denominator = len(entryKeywords)
	}

	keywordSimilarity := 0.0
	if denominator > 0 {
		keywordSimilarity = float64(len(matched)) / float64(denominator)
	}

	ratingBoost := entry.AverageRating / maxRatingValue
	usageBoost := math.Min(float64(entry.UsageCount)/usageNormalization, 1.0)

	score := keywordWeight*keywordSimilarity + ratingWeight*ratingBoost + usageWeight*usageBoost
	return score, matched
}
