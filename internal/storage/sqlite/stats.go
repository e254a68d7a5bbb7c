package sqlite

import (
	"context"
	"fmt"

	"github.com/issueops/backend/internal/storage/models"
)

func (c *Client) CountIssuesByStatus(ctx context.Context) (map[string]int, error) {
	return c.countGrouped(ctx, `SELECT status, COUNT(*) FROM issues GROUP BY status`)
}

func (c *Client) CountIssuesByCategory(ctx context.Context) (map[string]int, error) {
	return c.countGrouped(ctx, `SELECT category, COUNT(*) FROM issues GROUP BY category`)
}

func (c *Client) countGrouped(ctx context.Context, query string) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count grouped rows: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[key] = count
	}

	return counts, rows.Err()
}

func (c *Client) CountGeneratedArtifacts(ctx context.Context) (resolutions, sops int, err error) {
	if err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_resolutions`).Scan(&resolutions); err != nil {
		return 0, 0, fmt.Errorf("failed to count resolutions: %w", err)
	}
	if err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_sops`).Scan(&sops); err != nil {
		return 0, 0, fmt.Errorf("failed to count SOPs: %w", err)
	}
	return resolutions, sops, nil
}

func (c *Client) CountKnowledgeEntries(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count knowledge entries: %w", err)
	}
	return count, nil
}

// AverageResolutionRatingByCategory aggregates resolution ratings per issue
// category. The rating rows are joined to their issue so each category only
// sees its own ratings.
func (c *Client) AverageResolutionRatingByCategory(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT i.category, AVG(CAST(r.user_rating AS REAL))
		FROM generated_resolutions r
		JOIN issues i ON i.id = r.issue_id
		WHERE r.user_rating IS NOT NULL
		GROUP BY i.category
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer rows.Close()

	averages := make(map[string]float64)
	for rows.Next() {
		var category string
		var avg float64
		if err := rows.Scan(&category, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		averages[category] = avg
	}

	return averages, rows.Err()
}

func (c *Client) TopKnowledgeEntries(ctx context.Context, limit int) ([]models.KnowledgeEntry, error) {
	return c.ListEntries(ctx, "", limit)
}
