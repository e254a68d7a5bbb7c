package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issueops/backend/internal/storage/models"
)

type fakeStatsStore struct {
	byStatus   map[string]int
	byCategory map[string]int
	err        error
	calls      int
}

func (f *fakeStatsStore) CountIssuesByStatus(ctx context.Context) (map[string]int, error) {
	f.calls++
	return f.byStatus, f.err
}

func (f *fakeStatsStore) CountIssuesByCategory(ctx context.Context) (map[string]int, error) {
	return f.byCategory, nil
}

func (f *fakeStatsStore) CountGeneratedArtifacts(ctx context.Context) (int, int, error) {
	return 7, 2, nil
}

func (f *fakeStatsStore) CountKnowledgeEntries(ctx context.Context) (int, error) {
	return 12, nil
}

func (f *fakeStatsStore) AverageResolutionRatingByCategory(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{"database": 4.2}, nil
}

func (f *fakeStatsStore) TopKnowledgeEntries(ctx context.Context, limit int) ([]models.KnowledgeEntry, error) {
	return []models.KnowledgeEntry{{ID: "top-1"}}, nil
}

// memoryCache is an in-process stand-in for the redis client.
type memoryCache struct {
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = data
	m.sets++
	return nil
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, out)
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()

	newStore := func() *fakeStatsStore {
		return &fakeStatsStore{
			byStatus:   map[string]int{"open": 3, "resolved": 5},
			byCategory: map[string]int{"database": 4, "network": 4},
		}
	}

	t.Run("aggregates from storage", func(t *testing.T) {
		service := NewService(newStore(), nil, time.Minute)

		stats, err := service.DashboardStats(ctx)

		require.NoError(t, err)
		assert.Equal(t, 3, stats.IssuesByStatus["open"])
		assert.Equal(t, 7, stats.Resolutions)
		assert.Equal(t, 2, stats.SOPs)
		assert.Equal(t, 12, stats.KnowledgeEntries)
		assert.InDelta(t, 4.2, stats.RatingByCategory["database"], 1e-9)
		require.Len(t, stats.TopEntries, 1)
		assert.Equal(t, "top-1", stats.TopEntries[0].ID)
	})

	t.Run("second call is served from cache", func(t *testing.T) {
		store := newStore()
		cache := newMemoryCache()
		service := NewService(store, cache, time.Minute)

		_, err := service.DashboardStats(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, cache.sets)

		stats, err := service.DashboardStats(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, store.calls, "cached call must not hit storage")
		assert.Equal(t, 3, stats.IssuesByStatus["open"])
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		store := newStore()
		store.err = errors.New("database locked")
		service := NewService(store, nil, time.Minute)

		_, err := service.DashboardStats(ctx)

		assert.Error(t, err)
	})
}
