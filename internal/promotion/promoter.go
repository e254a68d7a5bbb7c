package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/metrics"
	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/pkg/logger"
)

var (
	// ErrInvalidRating rejects ratings outside the 1-5 star range before any
	// storage mutation is attempted.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrConcurrentUpdate is returned when the running-average update keeps
	// losing the compare-and-swap race. The whole rating operation fails
	// rather than half of it being written.
	ErrConcurrentUpdate = errors.New("knowledge entry was updated concurrently, rating not applied")
)

// promotionThreshold is the minimum rating for content to enter (or
// reinforce) the knowledge base.
const promotionThreshold = 4

// casAttempts bounds the compare-and-swap retry loop for the running-average
// update.
const casAttempts = 3

// Store is the sole write path into the knowledge base, plus the analytics
// trail for rating events.
type Store interface {
	RecordRatingEvent(ctx context.Context, event *models.RatingEvent) error
	GetEntryByContent(ctx context.Context, content string, contentType models.ContentType) (*models.KnowledgeEntry, error)
	InsertEntry(ctx context.Context, entry *models.KnowledgeEntry) error
	UpdateEntryRating(ctx context.Context, entryID string, newAverage float64, newUsage, expectedUsage int) (bool, error)
}

type Promoter struct {
	store Store
}

func NewPromoter(store Store) *Promoter {
	return &Promoter{store: store}
}

// OnRated records the rating event and, for ratings of 4 or above, promotes
// the rated content into the knowledge base. Promotion is keyed by exact
// content equality, so identical text rated highly from different issues
// accumulates into one entry.
func (p *Promoter) OnRated(ctx context.Context, targetID string, content string, contentType models.ContentType, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if !contentType.Valid() {
		return fmt.Errorf("unknown content type %q", contentType)
	}

	event := &models.RatingEvent{
		TargetType: contentType,
		TargetID:   targetID,
		Rating:     rating,
		Feedback:   feedback,
		CreatedAt:  time.Now(),
	}
	if err := p.store.RecordRatingEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record rating event: %w", err)
	}

	metrics.RatingsTotal.WithLabelValues(fmt.Sprintf("%d", rating)).Inc()

	if rating < promotionThreshold {
		metrics.PromotionsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		entry, err := p.store.GetEntryByContent(ctx, content, contentType)
		if errors.Is(err, storage.ErrNotFound) {
			newEntry := &models.KnowledgeEntry{
				ID:            uuid.New().String(),
				Content:       content,
				ContentType:   contentType,
				AverageRating: float64(rating),
				UsageCount:    1,
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			}
			if insertErr := p.store.InsertEntry(ctx, newEntry); insertErr != nil {
				// A concurrent rater may have created the entry between the
				// lookup and the insert; re-read and fold into it.
				logger.Warn("Knowledge entry insert failed, retrying promotion",
					zap.Error(insertErr),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			metrics.PromotionsTotal.WithLabelValues("created").Inc()
			logger.Info("Content promoted into knowledge base",
				zap.String("entry_id", newEntry.ID),
				zap.String("content_type", string(contentType)),
				zap.Int("rating", rating),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up knowledge entry: %w", err)
		}

		// Running mean weighted by the usage count at read time. Never
		// overwrite with the raw rating once an entry exists.
		newUsage := entry.UsageCount + 1
		newAverage := (entry.AverageRating*float64(entry.UsageCount) + float64(rating)) / float64(newUsage)

		applied, err := p.store.UpdateEntryRating(ctx, entry.ID, newAverage, newUsage, entry.UsageCount)
		if err != nil {
			return fmt.Errorf("failed to update knowledge entry: %w", err)
		}
		if applied {
			metrics.PromotionsTotal.WithLabelValues("updated").Inc()
			logger.Info("Knowledge entry reinforced",
				zap.String("entry_id", entry.ID),
				zap.Float64("average_rating", newAverage),
				zap.Int("usage_count", newUsage),
			)
			return nil
		}

		logger.Debug("Lost rating update race, re-reading entry",
			zap.String("entry_id", entry.ID),
			zap.Int("attempt", attempt+1),
		)
	}

	return ErrConcurrentUpdate
}
