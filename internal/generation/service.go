package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/knowledge"
	"github.com/issueops/backend/internal/metrics"
	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/pkg/logger"
)

var (
	// ErrDuplicateGeneration rejects a second automatic generation for an
	// issue that already has an artifact of that kind.
	ErrDuplicateGeneration = errors.New("an artifact was already generated for this issue")

	// ErrIssueNotResolved rejects SOP generation for issues that have not
	// reached resolved status.
	ErrIssueNotResolved = errors.New("issue must be resolved before SOP generation")

	// ErrNoQualifiedResolution rejects SOP generation when no resolution
	// was rated 4 stars or higher.
	ErrNoQualifiedResolution = errors.New("issue has no resolution rated 4 or higher")
)

// qualifiedResolutionRating is the minimum star rating a resolution needs
// before it can seed an SOP.
const qualifiedResolutionRating = 4

// Store is the persistence port for generation orchestration.
type Store interface {
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	CountResolutions(ctx context.Context, issueID string) (int, error)
	InsertResolution(ctx context.Context, r *models.GeneratedResolution) error
	CountSOPs(ctx context.Context, issueID string) (int, error)
	InsertSOP(ctx context.Context, s *models.GeneratedSOP) error
	BestRatedResolution(ctx context.Context, issueID string) (*models.GeneratedResolution, error)
}

// Service orchestrates retrieve-then-generate for both artifact kinds and
// owns the idempotency and precondition guards, so the HTTP path and the
// worker path share one set of rules.
type Service struct {
	store     Store
	retriever *knowledge.Retriever
	generator *Generator
}

func NewService(store Store, retriever *knowledge.Retriever, generator *Generator) *Service {
	return &Service{
		store:     store,
		retriever: retriever,
		generator: generator,
	}
}

func (s *Service) GenerateResolutionForIssue(ctx context.Context, issueID string) (*models.GeneratedResolution, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load issue: %w", err)
	}

	existing, err := s.store.CountResolutions(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing resolutions: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateGeneration
	}

	start := time.Now()

	query := issue.Title + " " + issue.Description
	retrieved := s.retriever.Retrieve(ctx, query, models.ContentTypeResolution, knowledge.DefaultResolutionLimit)
	metrics.RetrievalResults.Observe(float64(len(retrieved)))

	text, model := s.generator.GenerateResolution(ctx, *issue, retrieved)

	resolution := &models.GeneratedResolution{
		ID:             uuid.New().String(),
		IssueID:        issue.ID,
		ResolutionText: text,
		ModelUsed:      model,
		GeneratedAt:    time.Now(),
	}

	if err := s.store.InsertResolution(ctx, resolution); err != nil {
		return nil, fmt.Errorf("failed to store resolution: %w", err)
	}

	metrics.GenerationTotal.WithLabelValues("resolution", generationMode(model)).Inc()
	metrics.GenerationDuration.WithLabelValues("resolution").Observe(time.Since(start).Seconds())

	logger.Info("Resolution generated",
		zap.String("issue_id", issue.ID),
		zap.String("model", model),
		zap.Int("retrieved", len(retrieved)),
	)

	return resolution, nil
}

func (s *Service) GenerateSOPForIssue(ctx context.Context, issueID string) (*models.GeneratedSOP, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load issue: %w", err)
	}

	if issue.Status != models.StatusResolved {
		return nil, ErrIssueNotResolved
	}

	best, err := s.store.BestRatedResolution(ctx, issueID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoQualifiedResolution
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load best resolution: %w", err)
	}
	if best.UserRating == nil || *best.UserRating < qualifiedResolutionRating {
		return nil, ErrNoQualifiedResolution
	}

	existing, err := s.store.CountSOPs(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing SOPs: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateGeneration
	}

	start := time.Now()

	query := issue.Title + " " + issue.Description
	retrieved := s.retriever.Retrieve(ctx, query, models.ContentTypeSOP, knowledge.DefaultSearchLimit)
	metrics.RetrievalResults.Observe(float64(len(retrieved)))

	text, model := s.generator.GenerateSOP(ctx, *issue, best.ResolutionText, retrieved)

	sop := &models.GeneratedSOP{
		ID:          uuid.New().String(),
		IssueID:     issue.ID,
		SOPText:     text,
		ModelUsed:   model,
		GeneratedAt: time.Now(),
	}

	if err := s.store.InsertSOP(ctx, sop); err != nil {
		return nil, fmt.Errorf("failed to store SOP: %w", err)
	}

	metrics.GenerationTotal.WithLabelValues("sop", generationMode(model)).Inc()
	metrics.GenerationDuration.WithLabelValues("sop").Observe(time.Since(start).Seconds())

	logger.Info("SOP generated",
		zap.String("issue_id", issue.ID),
		zap.String("model", model),
		zap.Int("best_rating", ratingValue(best.UserRating)),
	)

	return sop, nil
}

func generationMode(model string) string {
	if model == FallbackModelName {
		return "fallback"
	}
	return "backend"
}

func ratingValue(rating *int) int {
	if rating == nil {
		return 0
	}
	return *rating
}
