package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/issueops/backend/internal/metrics"
	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/pkg/logger"
)

const (
	statsCacheKey  = "stats:dashboard"
	topEntriesSize = 5
)

type Stats struct {
	IssuesByStatus    map[string]int         `json:"issues_by_status"`
	IssuesByCategory  map[string]int         `json:"issues_by_category"`
	Resolutions       int                    `json:"resolutions_generated"`
	SOPs              int                    `json:"sops_generated"`
	KnowledgeEntries  int                    `json:"knowledge_entries"`
	RatingByCategory  map[string]float64     `json:"avg_resolution_rating_by_category"`
	TopEntries        []models.KnowledgeEntry `json:"top_knowledge_entries"`
	GeneratedAt       time.Time              `json:"generated_at"`
}

// Store is the read-only aggregation port.
type Store interface {
	CountIssuesByStatus(ctx context.Context) (map[string]int, error)
	CountIssuesByCategory(ctx context.Context) (map[string]int, error)
	CountGeneratedArtifacts(ctx context.Context) (resolutions, sops int, err error)
	CountKnowledgeEntries(ctx context.Context) (int, error)
	AverageResolutionRatingByCategory(ctx context.Context) (map[string]float64, error)
	TopKnowledgeEntries(ctx context.Context, limit int) ([]models.KnowledgeEntry, error)
}

// Cache is satisfied by the redis client; a nil Cache disables caching.
type Cache interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, out interface{}) (bool, error)
}

type Service struct {
	store Store
	cache Cache
	ttl   time.Duration
}

func NewService(store Store, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{store: store, cache: cache, ttl: ttl}
}

func (s *Service) DashboardStats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		var cached Stats
		hit, err := s.cache.GetJSON(ctx, statsCacheKey, &cached)
		if err != nil {
			logger.Warn("Stats cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("stats").Inc()
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("stats").Inc()
	}

	byStatus, err := s.store.CountIssuesByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues by status: %w", err)
	}

	byCategory, err := s.store.CountIssuesByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues by category: %w", err)
	}

	resolutions, sops, err := s.store.CountGeneratedArtifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count artifacts: %w", err)
	}

	entries, err := s.store.CountKnowledgeEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count knowledge entries: %w", err)
	}

	ratings, err := s.store.AverageResolutionRatingByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	top, err := s.store.TopKnowledgeEntries(ctx, topEntriesSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load top entries: %w", err)
	}

	stats := &Stats{
		IssuesByStatus:   byStatus,
		IssuesByCategory: byCategory,
		Resolutions:      resolutions,
		SOPs:             sops,
		KnowledgeEntries: entries,
		RatingByCategory: ratings,
		TopEntries:       top,
		GeneratedAt:      time.Now(),
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, statsCacheKey, stats, s.ttl); err != nil {
			logger.Warn("Stats cache write failed", zap.Error(err))
		}
	}

	return stats, nil
}
