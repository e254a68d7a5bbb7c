package generation

import (
	"context"

	"go.uber.org/zap"

	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/pkg/logger"
)

// Options is the sampling configuration for one backend call. Explicit typed
// fields instead of an open-ended options bag.
type Options struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Per-call-site defaults: resolutions favor determinism over creativity,
// SOPs allow slightly more variation in wording and get a larger budget for
// their fixed section structure.
var (
	resolutionOptions = Options{Temperature: 0.2, TopP: 0.9, MaxTokens: 1024}
	sopOptions        = Options{Temperature: 0.3, TopP: 0.9, MaxTokens: 1536}
)

type Request struct {
	SystemPrompt string
	UserPrompt   string
	Options      Options
}

type Result struct {
	Text  string
	Model string
}

// Backend is the opaque generation service: one call, one health probe.
type Backend interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Healthy(ctx context.Context) bool
}

// FallbackModelName marks artifacts produced by the local templates rather
// than the backend.
const FallbackModelName = "builtin-template"

type Generator struct {
	backend Backend
}

func NewGenerator(backend Backend) *Generator {
	return &Generator{backend: backend}
}

// GenerateResolution asks the backend for a resolution draft and falls back
// to the category template on any failure. It always returns usable text;
// the second return value names the model that produced it.
func (g *Generator) GenerateResolution(ctx context.Context, issue models.Issue, retrieved []models.RetrievalResult) (string, string) {
	result, err := g.backend.Generate(ctx, Request{
		SystemPrompt: resolutionSystemPrompt,
		UserPrompt:   buildResolutionPrompt(issue, retrieved),
		Options:      resolutionOptions,
	})

	if err != nil || result == nil || result.Text == "" {
		logger.Warn("Generation backend unavailable, using resolution template",
			zap.String("issue_id", issue.ID),
			zap.Error(err),
		)
		return FallbackResolution(issue, retrieved), FallbackModelName
	}

	return result.Text, result.Model
}

// GenerateSOP is the SOP counterpart of GenerateResolution. Preconditions
// (resolved status, qualified resolution) are enforced by the Service before
// this point; here the only failure mode is the backend, which degrades to
// the template.
func (g *Generator) GenerateSOP(ctx context.Context, issue models.Issue, resolutionText string, retrieved []models.RetrievalResult) (string, string) {
	result, err := g.backend.Generate(ctx, Request{
		SystemPrompt: sopSystemPrompt,
		UserPrompt:   buildSOPPrompt(issue, resolutionText, retrieved),
		Options:      sopOptions,
	})

	if err != nil || result == nil || result.Text == "" {
		logger.Warn("Generation backend unavailable, using SOP template",
			zap.String("issue_id", issue.ID),
			zap.Error(err),
		)
		return FallbackSOP(issue, resolutionText), FallbackModelName
	}

	return result.Text, result.Model
}
