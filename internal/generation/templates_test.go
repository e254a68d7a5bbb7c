package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/issueops/backend/internal/storage/models"
)

func TestFallbackResolution(t *testing.T) {
	issue := models.Issue{
		ID:          "issue-1",
		Title:       "Database connection timeout",
		Category:    models.CategoryDatabase,
		Severity:    models.SeverityHigh,
		Environment: "production",
	}

	t.Run("renders the category template", func(t *testing.T) {
		text := FallbackResolution(issue, nil)

		assert.Contains(t, text, "DATABASE ISSUE RESOLUTION")
		assert.Contains(t, text, issue.Title)
		assert.Contains(t, text, "Severity: high")
		assert.Contains(t, text, "1. ")
	})

	t.Run("never empty for any category", func(t *testing.T) {
		categories := []models.IssueCategory{
			models.CategoryInfrastructure, models.CategoryApplication,
			models.CategoryDatabase, models.CategoryNetwork,
			models.CategorySecurity, models.CategoryPerformance,
			models.CategoryUI, models.CategoryAPI, models.CategoryOther,
			models.IssueCategory("something-new"),
		}

		for _, category := range categories {
			i := issue
			i.Category = category
			text := FallbackResolution(i, nil)
			assert.NotEmpty(t, text, "category %s", category)
			assert.Contains(t, text, "Recommended steps:")
		}
	})

	t.Run("unknown category uses the infrastructure template", func(t *testing.T) {
		i := issue
		i.Category = models.IssueCategory("quantum")

		text := FallbackResolution(i, nil)

		assert.Contains(t, text, "INFRASTRUCTURE ISSUE RESOLUTION")
	})

	t.Run("includes retrieved knowledge with truncation", func(t *testing.T) {
		longContent := strings.Repeat("x", fallbackContentTruncation+200)
		retrieved := []models.RetrievalResult{
			{
				Entry: models.KnowledgeEntry{
					Content:       longContent,
					AverageRating: 4.5,
				},
				MatchedKeywords: []string{"alpha", "beta", "gamma", "delta"},
			},
		}

		text := FallbackResolution(issue, retrieved)

		assert.Contains(t, text, "LEARNED FROM SIMILAR ISSUES:")
		assert.Contains(t, text, "avg rating 4.5")
		assert.Contains(t, text, "alpha, beta, gamma")
		assert.NotContains(t, text, "delta")
		assert.NotContains(t, text, longContent)
		assert.Contains(t, text, longContent[:fallbackContentTruncation]+"...")
	})

	t.Run("omits the learned section without retrieval", func(t *testing.T) {
		text := FallbackResolution(issue, nil)

		assert.NotContains(t, text, "LEARNED FROM SIMILAR ISSUES:")
	})
}

func TestFallbackSOP(t *testing.T) {
	issue := models.Issue{
		ID:          "issue-2",
		Title:       "Nightly backup failing",
		Category:    models.CategoryInfrastructure,
		Severity:    models.SeverityMedium,
		Environment: "production",
	}

	t.Run("renders every required section", func(t *testing.T) {
		text := FallbackSOP(issue, "restarted the backup agent")

		for _, section := range []string{
			"STANDARD OPERATING PROCEDURE",
			"Purpose:", "Scope:", "Preconditions:", "Procedure:",
			"Validation Checks:", "Rollback Plan:",
		} {
			assert.Contains(t, text, section)
		}
		assert.Contains(t, text, issue.Title)
		assert.Contains(t, text, "restarted the backup agent")
	})

	t.Run("handles an empty reference resolution", func(t *testing.T) {
		text := FallbackSOP(issue, "")

		assert.NotEmpty(t, text)
		assert.NotContains(t, text, "Reference resolution:")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
