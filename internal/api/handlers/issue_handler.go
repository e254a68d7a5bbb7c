package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/intake"
	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/internal/storage/sqlite"
	"github.com/issueops/backend/internal/worker"
	"github.com/issueops/backend/pkg/logger"
)

const defaultListLimit = 50

type IssueHandler struct {
	store *sqlite.Client
	queue *worker.Queue
}

func NewIssueHandler(store *sqlite.Client, queue *worker.Queue) *IssueHandler {
	return &IssueHandler{
		store: store,
		queue: queue,
	}
}

func (h *IssueHandler) CreateIssue(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Severity    string `json:"severity"`
		Environment string `json:"environment"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	category := models.IssueCategory(req.Category)
	if req.Category == "" {
		category = models.CategoryOther
	}
	if !category.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown category",
		})
	}

	severity := models.IssueSeverity(req.Severity)
	if req.Severity == "" {
		severity = models.SeverityMedium
	}
	if !severity.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown severity",
		})
	}

	now := time.Now()
	issue := &models.Issue{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: intake.SanitizeDescription(req.Description),
		Category:    category,
		Severity:    severity,
		Environment: req.Environment,
		Status:      models.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.InsertIssue(c.Context(), issue); err != nil {
		logger.Error("Failed to create issue", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create issue",
		})
	}

	queued := h.queue.Enqueue(worker.Task{
		Type:    worker.TaskGenerateResolution,
		IssueID: issue.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"issue":                issue,
		"resolution_scheduled": queued,
	})
}

func (h *IssueHandler) ListIssues(c *fiber.Ctx) error {
	status := models.IssueStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown status",
		})
	}

	category := models.IssueCategory(c.Query("category"))
	if category != "" && !category.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown category",
		})
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}

	issues, err := h.store.ListIssues(c.Context(), status, category, limit)
	if err != nil {
		logger.Error("Failed to list issues", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list issues",
		})
	}

	if issues == nil {
		issues = []models.Issue{}
	}

	return c.JSON(fiber.Map{
		"issues": issues,
		"count":  len(issues),
	})
}

func (h *IssueHandler) GetIssue(c *fiber.Ctx) error {
	issue, err := h.store.GetIssue(c.Context(), c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Issue not found",
		})
	}
	if err != nil {
		logger.Error("Failed to get issue", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get issue",
		})
	}

	return c.JSON(issue)
}

func (h *IssueHandler) UpdateStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	status := models.IssueStatus(req.Status)
	if !status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown status",
		})
	}

	issueID := c.Params("id")

	err := h.store.UpdateIssueStatus(c.Context(), issueID, status)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Issue not found",
		})
	}
	if err != nil {
		logger.Error("Failed to update issue status", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update issue status",
		})
	}

	sopScheduled := false
	if status == models.StatusResolved {
		sopScheduled = h.queue.Enqueue(worker.Task{
			Type:    worker.TaskGenerateSOP,
			IssueID: issueID,
		})
	}

	return c.JSON(fiber.Map{
		"issue_id":      issueID,
		"status":        status,
		"sop_scheduled": sopScheduled,
	})
}
