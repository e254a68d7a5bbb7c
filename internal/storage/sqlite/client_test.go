package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func newIssue(id string, category models.IssueCategory) *models.Issue {
	now := time.Now()
	return &models.Issue{
		ID:          id,
		Title:       "Database connection timeout",
		Description: "Connections time out after 30s",
		Category:    category,
		Severity:    models.SeverityHigh,
		Environment: "production",
		Status:      models.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestIssueRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	issue := newIssue("issue-1", models.CategoryDatabase)
	require.NoError(t, client.InsertIssue(ctx, issue))

	loaded, err := client.GetIssue(ctx, "issue-1")
	require.NoError(t, err)
	assert.Equal(t, issue.Title, loaded.Title)
	assert.Equal(t, issue.Category, loaded.Category)
	assert.Equal(t, models.StatusOpen, loaded.Status)
	assert.Equal(t, issue.CreatedAt.Unix(), loaded.CreatedAt.Unix())
	assert.Nil(t, loaded.ResolvedAt)

	_, err = client.GetIssue(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListIssuesFilters(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.InsertIssue(ctx, newIssue("a", models.CategoryDatabase)))
	require.NoError(t, client.InsertIssue(ctx, newIssue("b", models.CategoryNetwork)))
	require.NoError(t, client.UpdateIssueStatus(ctx, "b", models.StatusResolved))

	all, err := client.ListIssues(ctx, "", "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	databaseOnly, err := client.ListIssues(ctx, "", models.CategoryDatabase, 10)
	require.NoError(t, err)
	require.Len(t, databaseOnly, 1)
	assert.Equal(t, "a", databaseOnly[0].ID)

	resolvedOnly, err := client.ListIssues(ctx, models.StatusResolved, "", 10)
	require.NoError(t, err)
	require.Len(t, resolvedOnly, 1)
	assert.Equal(t, "b", resolvedOnly[0].ID)
}

func TestUpdateIssueStatus(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.InsertIssue(ctx, newIssue("issue-1", models.CategoryDatabase)))

	require.NoError(t, client.UpdateIssueStatus(ctx, "issue-1", models.StatusResolved))

	loaded, err := client.GetIssue(ctx, "issue-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, loaded.Status)
	require.NotNil(t, loaded.ResolvedAt, "resolving must stamp resolved_at")

	err = client.UpdateIssueStatus(ctx, "missing", models.StatusClosed)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolutionLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.InsertIssue(ctx, newIssue("issue-1", models.CategoryDatabase)))

	count, err := client.CountResolutions(ctx, "issue-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = client.BestRatedResolution(ctx, "issue-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for _, r := range []*models.GeneratedResolution{
		{ID: "res-low", IssueID: "issue-1", ResolutionText: "weak fix", ModelUsed: "m", GeneratedAt: time.Now()},
		{ID: "res-high", IssueID: "issue-1", ResolutionText: "strong fix", ModelUsed: "m", GeneratedAt: time.Now()},
	} {
		require.NoError(t, client.InsertResolution(ctx, r))
	}

	require.NoError(t, client.SetResolutionRating(ctx, "res-low", 2, "barely helped"))
	require.NoError(t, client.SetResolutionRating(ctx, "res-high", 5, "perfect"))

	best, err := client.BestRatedResolution(ctx, "issue-1")
	require.NoError(t, err)
	assert.Equal(t, "res-high", best.ID)
	require.NotNil(t, best.UserRating)
	assert.Equal(t, 5, *best.UserRating)
	assert.Equal(t, "perfect", best.UserFeedback)

	err = client.SetResolutionRating(ctx, "missing", 4, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestKnowledgeEntryQueries(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	now := time.Now()
	entries := []*models.KnowledgeEntry{
		{ID: "best", Content: "best fix", ContentType: models.ContentTypeResolution, AverageRating: 4.8, UsageCount: 3, CreatedAt: now, UpdatedAt: now},
		{ID: "good", Content: "good fix", ContentType: models.ContentTypeResolution, AverageRating: 4.0, UsageCount: 9, CreatedAt: now, UpdatedAt: now},
		{ID: "poor", Content: "poor fix", ContentType: models.ContentTypeResolution, AverageRating: 2.0, UsageCount: 50, CreatedAt: now, UpdatedAt: now},
		{ID: "sop", Content: "an sop", ContentType: models.ContentTypeSOP, AverageRating: 5.0, UsageCount: 1, CreatedAt: now, UpdatedAt: now},
	}
	for _, e := range entries {
		require.NoError(t, client.InsertEntry(ctx, e))
	}

	t.Run("candidates respect type and quality floor", func(t *testing.T) {
		candidates, err := client.ListCandidates(ctx, models.ContentTypeResolution, 3.5, 50)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		assert.Equal(t, "best", candidates[0].ID, "ordered by rating descending")
		assert.Equal(t, "good", candidates[1].ID)
	})

	t.Run("lookup by content", func(t *testing.T) {
		entry, err := client.GetEntryByContent(ctx, "good fix", models.ContentTypeResolution)
		require.NoError(t, err)
		assert.Equal(t, "good", entry.ID)

		_, err = client.GetEntryByContent(ctx, "good fix", models.ContentTypeSOP)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("usage increment", func(t *testing.T) {
		require.NoError(t, client.IncrementUsage(ctx, "best"))

		entry, err := client.GetEntryByContent(ctx, "best fix", models.ContentTypeResolution)
		require.NoError(t, err)
		assert.Equal(t, 4, entry.UsageCount)
	})

	t.Run("rating update applies only at the expected usage count", func(t *testing.T) {
		entry, err := client.GetEntryByContent(ctx, "good fix", models.ContentTypeResolution)
		require.NoError(t, err)

		applied, err := client.UpdateEntryRating(ctx, entry.ID, 4.5, entry.UsageCount+1, entry.UsageCount+7)
		require.NoError(t, err)
		assert.False(t, applied, "stale expectation must not apply")

		applied, err = client.UpdateEntryRating(ctx, entry.ID, 4.5, entry.UsageCount+1, entry.UsageCount)
		require.NoError(t, err)
		assert.True(t, applied)

		updated, err := client.GetEntryByContent(ctx, "good fix", models.ContentTypeResolution)
		require.NoError(t, err)
		assert.InDelta(t, 4.5, updated.AverageRating, 1e-9)
		assert.Equal(t, entry.UsageCount+1, updated.UsageCount)
	})
}

func TestAverageResolutionRatingByCategory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.InsertIssue(ctx, newIssue("db-issue", models.CategoryDatabase)))
	require.NoError(t, client.InsertIssue(ctx, newIssue("net-issue", models.CategoryNetwork)))

	resolutions := []struct {
		id      string
		issueID string
		rating  int
	}{
		{"r1", "db-issue", 5},
		{"r2", "db-issue", 3},
		{"r3", "net-issue", 2},
	}
	for _, r := range resolutions {
		require.NoError(t, client.InsertResolution(ctx, &models.GeneratedResolution{
			ID: r.id, IssueID: r.issueID, ResolutionText: "fix", ModelUsed: "m", GeneratedAt: time.Now(),
		}))
		require.NoError(t, client.SetResolutionRating(ctx, r.id, r.rating, ""))
	}
	// Unrated resolutions must not drag the average down.
	require.NoError(t, client.InsertResolution(ctx, &models.GeneratedResolution{
		ID: "r4", IssueID: "net-issue", ResolutionText: "fix", ModelUsed: "m", GeneratedAt: time.Now(),
	}))

	averages, err := client.AverageResolutionRatingByCategory(ctx)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, averages["database"], 1e-9)
	assert.InDelta(t, 2.0, averages["network"], 1e-9)
	assert.NotContains(t, averages, "infrastructure")
}
