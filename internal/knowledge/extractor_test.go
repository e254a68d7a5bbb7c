package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	t.Run("normalizes case and punctuation", func(t *testing.T) {
		keywords := ExtractKeywords("Database CONNECTION timeout!!!")

		assert.Contains(t, keywords, "database")
		assert.Contains(t, keywords, "connection")
		assert.Contains(t, keywords, "timeout")
		assert.Len(t, keywords, 3)
	})

	t.Run("drops stop words", func(t *testing.T) {
		keywords := ExtractKeywords("the server is down because of the disk")

		assert.NotContains(t, keywords, "the")
		assert.NotContains(t, keywords, "because")
		assert.Contains(t, keywords, "server")
		assert.Contains(t, keywords, "down")
		assert.Contains(t, keywords, "disk")
	})

	t.Run("drops short tokens", func(t *testing.T) {
		keywords := ExtractKeywords("db cpu ram api latency spike")

		assert.NotContains(t, keywords, "db")
		assert.NotContains(t, keywords, "cpu")
		assert.NotContains(t, keywords, "ram")
		assert.NotContains(t, keywords, "api")
		assert.Contains(t, keywords, "latency")
		assert.Contains(t, keywords, "spike")
	})

	t.Run("deduplicates repeated terms", func(t *testing.T) {
		keywords := ExtractKeywords("timeout timeout TIMEOUT timeout,")

		assert.Len(t, keywords, 1)
		assert.Contains(t, keywords, "timeout")
	})

	t.Run("empty and garbage input yield empty set", func(t *testing.T) {
		assert.Empty(t, ExtractKeywords(""))
		assert.Empty(t, ExtractKeywords("   \t\n  "))
		assert.Empty(t, ExtractKeywords("!!! ??? ... ###"))
		assert.Empty(t, ExtractKeywords("a an the of"))
	})

	t.Run("keeps alphanumeric tokens", func(t *testing.T) {
		keywords := ExtractKeywords("error code err500 on node7x99")

		assert.Contains(t, keywords, "err500")
		assert.Contains(t, keywords, "node7x99")
	})

	t.Run("extraction is idempotent over its own output", func(t *testing.T) {
		first := ExtractKeywords("Redis cluster failover caused stale reads")

		for keyword := range first {
			again := ExtractKeywords(keyword)
			assert.Contains(t, again, keyword)
		}
	})
}

func TestSortedKeywords(t *testing.T) {
	set := map[string]struct{}{
		"zebra": {}, "alpha": {}, "mango": {},
	}

	assert.Equal(t, []string{"alpha", "mango", "zebra"}, SortedKeywords(set))
	assert.Empty(t, SortedKeywords(nil))
}
