package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issueops/backend/internal/storage/models"
)

// fakeEntryStore serves a fixed candidate pool and records usage increments.
type fakeEntryStore struct {
	entries    []models.KnowledgeEntry
	err        error
	usageCalls []string
	gotType    models.ContentType
	gotMin     float64
	gotLimit   int
}

func (f *fakeEntryStore) ListCandidates(ctx context.Context, contentType models.ContentType, minRating float64, limit int) ([]models.KnowledgeEntry, error) {
	f.gotType = contentType
	f.gotMin = minRating
	f.gotLimit = limit
	return f.entries, f.err
}

func (f *fakeEntryStore) IncrementUsage(ctx context.Context, entryID string) error {
	f.usageCalls = append(f.usageCalls, entryID)
	return nil
}

func entry(id, content string, rating float64, usage int) models.KnowledgeEntry {
	return models.KnowledgeEntry{
		ID:            id,
		Content:       content,
		ContentType:   models.ContentTypeResolution,
		AverageRating: rating,
		UsageCount:    usage,
	}
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("passes quality floor and pool limit to storage", func(t *testing.T) {
		store := &fakeEntryStore{}
		retriever := NewRetriever(store)

		retriever.Retrieve(ctx, "database timeout", models.ContentTypeResolution, 3)

		assert.Equal(t, models.ContentTypeResolution, store.gotType)
		assert.Equal(t, QualityFloor, store.gotMin)
		assert.Equal(t, candidatePoolLimit, store.gotLimit)
	})

	t.Run("drops entries at or below the relevance floor", func(t *testing.T) {
		store := &fakeEntryStore{
			entries: []models.KnowledgeEntry{
				entry("relevant", "database connection timeout fixed", 4.0, 2),
				entry("unrelated", "", 0, 0),
			},
		}
		retriever := NewRetriever(store)

		results := retriever.Retrieve(ctx, "database connection timeout", models.ContentTypeResolution, 5)

		require.Len(t, results, 1)
		assert.Equal(t, "relevant", results[0].Entry.ID)
	})

	t.Run("ranks by score descending and truncates to limit", func(t *testing.T) {
		store := &fakeEntryStore{
			entries: []models.KnowledgeEntry{
				entry("partial", "database restart helped", 4.0, 2),
				entry("full", "database connection timeout", 4.0, 2),
				entry("weak", "database maintenance window", 4.0, 2),
			},
		}
		retriever := NewRetriever(store)

		results := retriever.Retrieve(ctx, "database connection timeout", models.ContentTypeResolution, 2)

		require.Len(t, results, 2)
		assert.Equal(t, "full", results[0].Entry.ID)
		assert.GreaterOrEqual(t, results[0].SimilarityScore, results[1].SimilarityScore)
	})

	t.Run("equal scores keep storage order", func(t *testing.T) {
		// Identical content and stats score identically; the stable sort must
		// preserve the rating-desc, usage-desc order storage returned.
		store := &fakeEntryStore{
			entries: []models.KnowledgeEntry{
				entry("first", "disk full on volume", 4.5, 5),
				entry("second", "disk full on volume", 4.5, 5),
				entry("third", "disk full on volume", 4.5, 5),
			},
		}
		retriever := NewRetriever(store)

		for i := 0; i < 5; i++ {
			results := retriever.Retrieve(ctx, "disk full volume", models.ContentTypeResolution, 3)
			require.Len(t, results, 3)
			assert.Equal(t, "first", results[0].Entry.ID)
			assert.Equal(t, "second", results[1].Entry.ID)
			assert.Equal(t, "third", results[2].Entry.ID)
		}
	})

	t.Run("increments usage only for returned entries", func(t *testing.T) {
		store := &fakeEntryStore{
			entries: []models.KnowledgeEntry{
				entry("kept", "database connection timeout", 4.0, 2),
				entry("cut", "printer jammed lobby", 0, 0),
			},
		}
		retriever := NewRetriever(store)

		retriever.Retrieve(ctx, "database connection timeout", models.ContentTypeResolution, 5)

		assert.Equal(t, []string{"kept"}, store.usageCalls)
	})

	t.Run("storage failure degrades to empty result", func(t *testing.T) {
		store := &fakeEntryStore{err: errors.New("disk io error")}
		retriever := NewRetriever(store)

		results := retriever.Retrieve(ctx, "database timeout", models.ContentTypeResolution, 3)

		assert.Empty(t, results)
		assert.Empty(t, store.usageCalls)
	})

	t.Run("empty pool yields empty result", func(t *testing.T) {
		retriever := NewRetriever(&fakeEntryStore{})

		results := retriever.Retrieve(ctx, "anything at all", models.ContentTypeSOP, 3)

		assert.Empty(t, results)
	})

	t.Run("non-positive limit falls back to the search default", func(t *testing.T) {
		pool := make([]models.KnowledgeEntry, 0, DefaultSearchLimit+3)
		for i := 0; i < DefaultSearchLimit+3; i++ {
			pool = append(pool, entry(string(rune('a'+i)), "database connection timeout", 4.0, 2))
		}
		store := &fakeEntryStore{entries: pool}
		retriever := NewRetriever(store)

		results := retriever.Retrieve(ctx, "database connection timeout", models.ContentTypeResolution, 0)

		assert.Len(t, results, DefaultSearchLimit)
	})
}
