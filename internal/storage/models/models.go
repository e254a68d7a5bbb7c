package models

import "time"

type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type IssueCategory string

const (
	CategoryInfrastructure IssueCategory = "infrastructure"
	CategoryApplication    IssueCategory = "application"
	CategoryDatabase       IssueCategory = "database"
	CategoryNetwork        IssueCategory = "network"
	CategorySecurity       IssueCategory = "security"
	CategoryPerformance    IssueCategory = "performance"
	CategoryUI             IssueCategory = "ui"
	CategoryAPI            IssueCategory = "api"
	CategoryOther          IssueCategory = "other"
)

func (c IssueCategory) Valid() bool {
	switch c {
	case CategoryInfrastructure, CategoryApplication, CategoryDatabase,
		CategoryNetwork, CategorySecurity, CategoryPerformance,
		CategoryUI, CategoryAPI, CategoryOther:
		return true
	}
	return false
}

type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

func (s IssueSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ContentType distinguishes the two kinds of reusable knowledge.
type ContentType string

const (
	ContentTypeResolution ContentType = "resolution"
	ContentTypeSOP        ContentType = "sop"
)

func (t ContentType) Valid() bool {
	return t == ContentTypeResolution || t == ContentTypeSOP
}

type Issue struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    IssueCategory `json:"category"`
	Severity    IssueSeverity `json:"severity"`
	Environment string        `json:"environment"`
	Status      IssueStatus   `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

type GeneratedResolution struct {
	ID             string    `json:"id"`
	IssueID        string    `json:"issue_id"`
	ResolutionText string    `json:"resolution_text"`
	ModelUsed      string    `json:"model_used"`
	GeneratedAt    time.Time `json:"generated_at"`
	UserRating     *int      `json:"user_rating,omitempty"`
	UserFeedback   string    `json:"user_feedback,omitempty"`
}

type GeneratedSOP struct {
	ID           string    `json:"id"`
	IssueID      string    `json:"issue_id"`
	SOPText      string    `json:"sop_text"`
	ModelUsed    string    `json:"model_used"`
	GeneratedAt  time.Time `json:"generated_at"`
	UserRating   *int      `json:"user_rating,omitempty"`
	UserFeedback string    `json:"user_feedback,omitempty"`
}

// KnowledgeEntry is a stored unit of reusable content. AverageRating is only
// ever moved by the running-average rule in internal/promotion, never set to
// a raw rating after the first contribution.
type KnowledgeEntry struct {
	ID            string      `json:"id"`
	Content       string      `json:"content"`
	ContentType   ContentType `json:"content_type"`
	AverageRating float64     `json:"average_rating"`
	UsageCount    int         `json:"usage_count"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// RetrievalResult decorates an entry with per-query scoring. Ephemeral,
// never persisted.
type RetrievalResult struct {
	Entry           KnowledgeEntry `json:"entry"`
	SimilarityScore float64        `json:"similarity_score"`
	MatchedKeywords []string       `json:"matched_keywords"`
}

// RatingEvent is the analytics trail for every rating, including sub-4
// ratings that never touch the knowledge base.
type RatingEvent struct {
	ID         int         `json:"id"`
	TargetType ContentType `json:"target_type"`
	TargetID   string      `json:"target_id"`
	Rating     int         `json:"rating"`
	Feedback   string      `json:"feedback,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
