package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		severity TEXT NOT NULL,
		environment TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		resolved_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
	CREATE INDEX IF NOT EXISTS idx_issues_category ON issues(category);
	CREATE INDEX IF NOT EXISTS idx_issues_created ON issues(created_at);

	CREATE TABLE IF NOT EXISTS generated_resolutions (
		id TEXT PRIMARY KEY,
		issue_id TEXT NOT NULL,
		resolution_text TEXT NOT NULL,
		model_used TEXT NOT NULL,
		generated_at INTEGER NOT NULL,
		user_rating INTEGER,
		user_feedback TEXT,
		FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_resolutions_issue ON generated_resolutions(issue_id);

	CREATE TABLE IF NOT EXISTS generated_sops (
		id TEXT PRIMARY KEY,
		issue_id TEXT NOT NULL,
		sop_text TEXT NOT NULL,
		model_used TEXT NOT NULL,
		generated_at INTEGER NOT NULL,
		user_rating INTEGER,
		user_feedback TEXT,
		FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sops_issue ON generated_sops(issue_id);

	CREATE TABLE IF NOT EXISTS knowledge_entries (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		content_type TEXT NOT NULL,
		average_rating REAL NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_knowledge_type_rating ON knowledge_entries(content_type, average_rating);

	CREATE TABLE IF NOT EXISTS rating_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		rating INTEGER NOT NULL,
		feedback TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ratings_target ON rating_events(target_type, target_id);
	CREATE INDEX IF NOT EXISTS idx_ratings_created ON rating_events(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertIssue(ctx context.Context, issue *models.Issue) error {
	query := `
		INSERT INTO issues (id, title, description, category, severity, environment, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		issue.ID,
		issue.Title,
		issue.Description,
		string(issue.Category),
		string(issue.Severity),
		issue.Environment,
		string(issue.Status),
		issue.CreatedAt.Unix(),
		issue.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}

	logger.Debug("Issue inserted", zap.String("issue_id", issue.ID), zap.String("category", string(issue.Category)))
	return nil
}

func (c *Client) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	query := `
		SELECT id, title, description, category, severity, environment, status, created_at, updated_at, resolved_at
		FROM issues WHERE id = ?
	`

	var issue models.Issue
	var createdAt, updatedAt int64
	var resolvedAt sql.NullInt64
	var environment sql.NullString

	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Severity,
		&environment,
		&issue.Status,
		&createdAt,
		&updatedAt,
		&resolvedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	issue.Environment = environment.String
	issue.CreatedAt = time.Unix(createdAt, 0)
	issue.UpdatedAt = time.Unix(updatedAt, 0)
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0)
		issue.ResolvedAt = &t
	}

	return &issue, nil
}

func (c *Client) ListIssues(ctx context.Context, status models.IssueStatus, category models.IssueCategory, limit int) ([]models.Issue, error) {
	query := `
		SELECT id, title, description, category, severity, environment, status, created_at, updated_at, resolved_at
		FROM issues
		WHERE (? = '' OR status = ?) AND (? = '' OR category = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, string(status), string(status), string(category), string(category), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []models.Issue
	for rows.Next() {
		var issue models.Issue
		var createdAt, updatedAt int64
		var resolvedAt sql.NullInt64
		var environment sql.NullString

		err := rows.Scan(
			&issue.ID,
			&issue.Title,
			&issue.Description,
			&issue.Category,
			&issue.Severity,
			&environment,
			&issue.Status,
			&createdAt,
			&updatedAt,
			&resolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		issue.Environment = environment.String
		issue.CreatedAt = time.Unix(createdAt, 0)
		issue.UpdatedAt = time.Unix(updatedAt, 0)
		if resolvedAt.Valid {
			t := time.Unix(resolvedAt.Int64, 0)
			issue.ResolvedAt = &t
		}
		issues = append(issues, issue)
	}

	return issues, rows.Err()
}

func (c *Client) UpdateIssueStatus(ctx context.Context, id string, status models.IssueStatus) error {
	now := time.Now()

	var query string
	var args []interface{}
	if status == models.StatusResolved {
		query = `UPDATE issues SET status = ?, updated_at = ?, resolved_at = ? WHERE id = ?`
		args = []interface{}{string(status), now.Unix(), now.Unix(), id}
	} else {
		query = `UPDATE issues SET status = ?, updated_at = ? WHERE id = ?`
		args = []interface{}{string(status), now.Unix(), id}
	}

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update issue status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	logger.Info("Issue status updated", zap.String("issue_id", id), zap.String("status", string(status)))
	return nil
}

func (c *Client) InsertResolution(ctx context.Context, r *models.GeneratedResolution) error {
	query := `
		INSERT INTO generated_resolutions (id, issue_id, resolution_text, model_used, generated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query, r.ID, r.IssueID, r.ResolutionText, r.ModelUsed, r.GeneratedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	logger.Info("Resolution stored",
		zap.String("resolution_id", r.ID),
		zap.String("issue_id", r.IssueID),
		zap.String("model", r.ModelUsed),
	)
	return nil
}

func (c *Client) CountResolutions(ctx context.Context, issueID string) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_resolutions WHERE issue_id = ?`, issueID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count resolutions: %w", err)
	}
	return count, nil
}

func (c *Client) GetResolution(ctx context.Context, id string) (*models.GeneratedResolution, error) {
	query := `
		SELECT id, issue_id, resolution_text, model_used, generated_at, user_rating, user_feedback
		FROM generated_resolutions WHERE id = ?
	`
	return c.scanResolution(c.db.QueryRowContext(ctx, query, id))
}

// BestRatedResolution returns the highest-rated resolution for an issue, or
// storage.ErrNotFound when the issue has no rated resolution at all.
func (c *Client) BestRatedResolution(ctx context.Context, issueID string) (*models.GeneratedResolution, error) {
	query := `
		SELECT id, issue_id, resolution_text, model_used, generated_at, user_rating, user_feedback
		FROM generated_resolutions
		WHERE issue_id = ? AND user_rating IS NOT NULL
		ORDER BY user_rating DESC, generated_at ASC
		LIMIT 1
	`
	return c.scanResolution(c.db.QueryRowContext(ctx, query, issueID))
}

func (c *Client) scanResolution(row *sql.Row) (*models.GeneratedResolution, error) {
	var r models.GeneratedResolution
	var generatedAt int64
	var rating sql.NullInt64
	var feedback sql.NullString

	err := row.Scan(&r.ID, &r.IssueID, &r.ResolutionText, &r.ModelUsed, &generatedAt, &rating, &feedback)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan resolution: %w", err)
	}

	r.GeneratedAt = time.Unix(generatedAt, 0)
	if rating.Valid {
		v := int(rating.Int64)
		r.UserRating = &v
	}
	r.UserFeedback = feedback.String
	return &r, nil
}

func (c *Client) SetResolutionRating(ctx context.Context, id string, rating int, feedback string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE generated_resolutions SET user_rating = ?, user_feedback = ? WHERE id = ?`,
		rating, feedback, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set resolution rating: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *Client) InsertSOP(ctx context.Context, s *models.GeneratedSOP) error {
	query := `
		INSERT INTO generated_sops (id, issue_id, sop_text, model_used, generated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query, s.ID, s.IssueID, s.SOPText, s.ModelUsed, s.GeneratedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert SOP: %w", err)
	}

	logger.Info("SOP stored",
		zap.String("sop_id", s.ID),
		zap.String("issue_id", s.IssueID),
		zap.String("model", s.ModelUsed),
	)
	return nil
}

func (c *Client) CountSOPs(ctx context.Context, issueID string) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_sops WHERE issue_id = ?`, issueID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count SOPs: %w", err)
	}
	return count, nil
}

func (c *Client) GetSOP(ctx context.Context, id string) (*models.GeneratedSOP, error) {
	query := `
		SELECT id, issue_id, sop_text, model_used, generated_at, user_rating, user_feedback
		FROM generated_sops WHERE id = ?
	`

	var s models.GeneratedSOP
	var generatedAt int64
	var rating sql.NullInt64
	var feedback sql.NullString

	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.IssueID, &s.SOPText, &s.ModelUsed, &generatedAt, &rating, &feedback,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SOP: %w", err)
	}

	s.GeneratedAt = time.Unix(generatedAt, 0)
	if rating.Valid {
		v := int(rating.Int64)
		s.UserRating = &v
	}
	s.UserFeedback = feedback.String
	return &s, nil
}

func (c *Client) SetSOPRating(ctx context.Context, id string, rating int, feedback string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE generated_sops SET user_rating = ?, user_feedback = ? WHERE id = ?`,
		rating, feedback, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set SOP rating: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListCandidates fetches the retrieval candidate pool: entries of the given
// type at or above the quality floor, best-rated and most-used first. The
// limit bounds the scan as the knowledge base grows.
func (c *Client) ListCandidates(ctx context.Context, contentType models.ContentType, minRating float64, limit int) ([]models.KnowledgeEntry, error) {
	query := `
		SELECT id, content, content_type, average_rating, usage_count, created_at, updated_at
		FROM knowledge_entries
		WHERE content_type = ? AND average_rating >= ?
		ORDER BY average_rating DESC, usage_count DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, string(contentType), minRating, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (c *Client) ListEntries(ctx context.Context, contentType models.ContentType, limit int) ([]models.KnowledgeEntry, error) {
	query := `
		SELECT id, content, content_type, average_rating, usage_count, created_at, updated_at
		FROM knowledge_entries
		WHERE (? = '' OR content_type = ?)
		ORDER BY average_rating DESC, usage_count DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, string(contentType), string(contentType), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.KnowledgeEntry, error) {
	var entries []models.KnowledgeEntry
	for rows.Next() {
		var e models.KnowledgeEntry
		var createdAt, updatedAt int64

		err := rows.Scan(&e.ID, &e.Content, &e.ContentType, &e.AverageRating, &e.UsageCount, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.CreatedAt = time.Unix(createdAt, 0)
		e.UpdatedAt = time.Unix(updatedAt, 0)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// IncrementUsage bumps the usage counter in a single statement. Usage count
// is a soft ranking signal; a failed increment is logged and dropped by the
// caller rather than failing the retrieval.
func (c *Client) IncrementUsage(ctx context.Context, entryID string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE knowledge_entries SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().Unix(), entryID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

func (c *Client) GetEntryByContent(ctx context.Context, content string, contentType models.ContentType) (*models.KnowledgeEntry, error) {
	query := `
		SELECT id, content, content_type, average_rating, usage_count, created_at, updated_at
		FROM knowledge_entries
		WHERE content = ? AND content_type = ?
		LIMIT 1
	`

	var e models.KnowledgeEntry
	var createdAt, updatedAt int64

	err := c.db.QueryRowContext(ctx, query, content, string(contentType)).Scan(
		&e.ID, &e.Content, &e.ContentType, &e.AverageRating, &e.UsageCount, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry by content: %w", err)
	}

	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return &e, nil
}

func (c *Client) InsertEntry(ctx context.Context, e *models.KnowledgeEntry) error {
	query := `
		INSERT INTO knowledge_entries (id, content, content_type, average_rating, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		e.ID, e.Content, string(e.ContentType), e.AverageRating, e.UsageCount,
		e.CreatedAt.Unix(), e.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert knowledge entry: %w", err)
	}

	logger.Info("Knowledge entry created",
		zap.String("entry_id", e.ID),
		zap.String("content_type", string(e.ContentType)),
		zap.Float64("average_rating", e.AverageRating),
	)
	return nil
}

// UpdateEntryRating applies a running-average update as a compare-and-swap
// on usage_count. Returns false without error when a concurrent rater moved
// the entry first; the caller re-reads and retries. Both columns move in one
// statement, so a partial write of only one of them cannot happen.
func (c *Client) UpdateEntryRating(ctx context.Context, entryID string, newAverage float64, newUsage, expectedUsage int) (bool, error) {
	res, err := c.db.ExecContext(ctx,
		`UPDATE knowledge_entries SET average_rating = ?, usage_count = ?, updated_at = ?
		 WHERE id = ? AND usage_count = ?`,
		newAverage, newUsage, time.Now().Unix(), entryID, expectedUsage,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update entry rating: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (c *Client) RecordRatingEvent(ctx context.Context, event *models.RatingEvent) error {
	query := `
		INSERT INTO rating_events (target_type, target_id, rating, feedback, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		string(event.TargetType), event.TargetID, event.Rating, event.Feedback, event.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record rating event: %w", err)
	}

	logger.Debug("Rating event recorded",
		zap.String("target_type", string(event.TargetType)),
		zap.String("target_id", event.TargetID),
		zap.Int("rating", event.Rating),
	)
	return nil
}
