package knowledge

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/pkg/logger"
)

const (
	// QualityFloor keeps poorly rated content out of prompts regardless of
	// how often it was used.
	QualityFloor = 3.5

	// relevanceFloor drops entries that are highly rated but lexically
	// unrelated to the query.
	relevanceFloor = 0.1

	// candidatePoolLimit bounds the storage scan as the knowledge base grows.
	candidatePoolLimit = 50

	// DefaultResolutionLimit and DefaultSearchLimit are the top-K defaults
	// for resolution-prompt enrichment and general search respectively.
	DefaultResolutionLimit = 3
	DefaultSearchLimit     = 5
)

// EntryStore is the storage port the retriever reads candidates through.
// Tests substitute an in-memory fake.
type EntryStore interface {
	ListCandidates(ctx context.Context, contentType models.ContentType, minRating float64, limit int) ([]models.KnowledgeEntry, error)
	IncrementUsage(ctx context.Context, entryID string) error
}

type Retriever struct {
	store EntryStore
}

func NewRetriever(store EntryStore) *Retriever {
	return &Retriever{store: store}
}

// Retrieve scores the candidate pool against the query and returns the
// top-limit results, best first. It never fails: store errors degrade to an
// empty result set so generation can proceed without enrichment. As a side
// effect the usage counter of every returned entry is incremented; a lost
// increment under concurrency is an accepted inaccuracy on a soft signal.
func (r *Retriever) Retrieve(ctx context.Context, query string, contentType models.ContentType, limit int) []models.RetrievalResult {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	candidates, err := r.store.ListCandidates(ctx, contentType, QualityFloor, candidatePoolLimit)
	if err != nil {
		logger.Warn("Candidate fetch failed, degrading to empty retrieval", zap.Error(err))
		return nil
	}

	queryKeywords := ExtractKeywords(query)

	results := make([]models.RetrievalResult, 0, len(candidates))
	for _, entry := range candidates {
		score, matched := ScoreEntry(queryKeywords, entry)
		if score <= relevanceFloor {
			continue
		}
		results = append(results, models.RetrievalResult{
			Entry:           entry,
			SimilarityScore: score,
			MatchedKeywords: matched,
		})
	}

	// Stable sort keeps the storage order (rating desc, usage desc) as the
	// deterministic tie-break.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})

	if len(results) > limit {
		results = results[:limit]
	}

	for _, result := range results {
		if err := r.store.IncrementUsage(ctx, result.Entry.ID); err != nil {
			logger.Warn("Usage increment failed",
				zap.String("entry_id", result.Entry.ID),
				zap.Error(err),
			)
		}
	}

	logger.Debug("Knowledge retrieved",
		zap.String("content_type", string(contentType)),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(results)),
	)

	return results
}
