package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/issueops/backend/internal/storage/models"
)

func TestScoreEntry(t *testing.T) {
	t.Run("score stays within zero and one", func(t *testing.T) {
		entry := models.KnowledgeEntry{
			Content:       "database connection timeout resolved by pool restart",
			AverageRating: 5.0,
			UsageCount:    100,
		}
		query := ExtractKeywords("database connection timeout resolved pool restart")

		score, _ := ScoreEntry(query, entry)

		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})

	t.Run("full overlap with max rating and usage scores one", func(t *testing.T) {
		entry := models.KnowledgeEntry{
			Content:       "database timeout",
			AverageRating: 5.0,
			UsageCount:    10,
		}
		query := ExtractKeywords("database timeout")

		score, matched := ScoreEntry(query, entry)

		assert.InDelta(t, 1.0, score, 1e-9)
		assert.Equal(t, []string{"database", "timeout"}, matched)
	})

	t.Run("no overlap leaves only rating and usage boosts", func(t *testing.T) {
		entry := models.KnowledgeEntry{
			Content:       "printer jammed in office lobby",
			AverageRating: 4.0,
			UsageCount:    5,
		}
		query := ExtractKeywords("kubernetes pod crashloop")

		score, matched := ScoreEntry(query, entry)

		// 0.3*(4/5) + 0.1*(5/10)
		assert.InDelta(t, 0.29, score, 1e-9)
		assert.Empty(t, matched)
	})

	t.Run("usage boost saturates at ten uses", func(t *testing.T) {
		base := models.KnowledgeEntry{Content: "unrelated words here", AverageRating: 0}

		atCap := base
		atCap.UsageCount = 10
		beyondCap := base
		beyondCap.UsageCount = 10000

		scoreAtCap, _ := ScoreEntry(nil, atCap)
		scoreBeyond, _ := ScoreEntry(nil, beyondCap)

		assert.Equal(t, scoreAtCap, scoreBeyond)
	})

	t.Run("overlap is normalized by the larger keyword set", func(t *testing.T) {
		entry := models.KnowledgeEntry{
			Content: "database timeout pool sessions replication lagging",
		}
		query := ExtractKeywords("database timeout")

		score, matched := ScoreEntry(query, entry)

		// 2 matches over the 6-keyword entry set, zero rating and usage.
		assert.InDelta(t, 0.6*(2.0/6.0), score, 1e-9)
		assert.Len(t, matched, 2)
	})

	t.Run("empty query against empty entry scores zero overlap", func(t *testing.T) {
		entry := models.KnowledgeEntry{Content: "", AverageRating: 5.0, UsageCount: 0}

		score, matched := ScoreEntry(nil, entry)

		assert.InDelta(t, 0.3, score, 1e-9)
		assert.Empty(t, matched)
	})

	t.Run("matched keywords come back sorted", func(t *testing.T) {
		entry := models.KnowledgeEntry{
			Content: "zookeeper alpha migration",
		}
		query := ExtractKeywords("zookeeper migration alpha")

		_, matched := ScoreEntry(query, entry)

		assert.Equal(t, []string{"alpha", "migration", "zookeeper"}, matched)
	})
}
