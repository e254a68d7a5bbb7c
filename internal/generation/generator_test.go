package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/issueops/backend/internal/storage/models"
)

type fakeBackend struct {
	result  *Result
	err     error
	healthy bool
	lastReq Request
}

func (f *fakeBackend) Generate(ctx context.Context, req Request) (*Result, error) {
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeBackend) Healthy(ctx context.Context) bool {
	return f.healthy
}

func testIssue() models.Issue {
	return models.Issue{
		ID:          "issue-1",
		Title:       "Database connection timeout",
		Description: "Connections to the primary database time out after 30s",
		Category:    models.CategoryDatabase,
		Severity:    models.SeverityHigh,
		Environment: "production",
	}
}

func TestGenerateResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("returns backend text on success", func(t *testing.T) {
		backend := &fakeBackend{result: &Result{Text: "restart the pool", Model: "llama3.1:8b"}}
		g := NewGenerator(backend)

		text, model := g.GenerateResolution(ctx, testIssue(), nil)

		assert.Equal(t, "restart the pool", text)
		assert.Equal(t, "llama3.1:8b", model)
		assert.Equal(t, resolutionOptions, backend.lastReq.Options)
	})

	t.Run("backend error falls back to the template", func(t *testing.T) {
		backend := &fakeBackend{err: errors.New("connection refused")}
		g := NewGenerator(backend)

		text, model := g.GenerateResolution(ctx, testIssue(), nil)

		assert.Equal(t, FallbackModelName, model)
		assert.Contains(t, text, "DATABASE ISSUE RESOLUTION")
		assert.Contains(t, text, "Database connection timeout")
	})

	t.Run("empty backend text falls back to the template", func(t *testing.T) {
		backend := &fakeBackend{result: &Result{Text: "", Model: "llama3.1:8b"}}
		g := NewGenerator(backend)

		text, model := g.GenerateResolution(ctx, testIssue(), nil)

		assert.Equal(t, FallbackModelName, model)
		assert.NotEmpty(t, text)
	})

	t.Run("prompt carries issue and retrieved content", func(t *testing.T) {
		backend := &fakeBackend{result: &Result{Text: "ok", Model: "m"}}
		g := NewGenerator(backend)

		retrieved := []models.RetrievalResult{
			{
				Entry:           models.KnowledgeEntry{Content: "increase pool size", AverageRating: 4.2},
				SimilarityScore: 0.8,
				MatchedKeywords: []string{"pool"},
			},
		}
		g.GenerateResolution(ctx, testIssue(), retrieved)

		assert.Contains(t, backend.lastReq.UserPrompt, "Database connection timeout")
		assert.Contains(t, backend.lastReq.UserPrompt, "increase pool size")
		assert.NotEmpty(t, backend.lastReq.SystemPrompt)
	})
}

func TestGenerateSOP(t *testing.T) {
	ctx := context.Background()

	t.Run("returns backend text on success", func(t *testing.T) {
		backend := &fakeBackend{result: &Result{Text: "sop body", Model: "llama3.1:8b"}}
		g := NewGenerator(backend)

		text, model := g.GenerateSOP(ctx, testIssue(), "the fix", nil)

		assert.Equal(t, "sop body", text)
		assert.Equal(t, "llama3.1:8b", model)
		assert.Equal(t, sopOptions, backend.lastReq.Options)
	})

	t.Run("backend error falls back to the SOP template", func(t *testing.T) {
		backend := &fakeBackend{err: errors.New("timeout")}
		g := NewGenerator(backend)

		text, model := g.GenerateSOP(ctx, testIssue(), "the fix", nil)

		assert.Equal(t, FallbackModelName, model)
		assert.Contains(t, text, "STANDARD OPERATING PROCEDURE")
		assert.Contains(t, text, "the fix")
	})
}
