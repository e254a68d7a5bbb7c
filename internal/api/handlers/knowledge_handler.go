package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/knowledge"
	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/internal/storage/sqlite"
	"github.com/issueops/backend/pkg/logger"
)

type KnowledgeHandler struct {
	store     *sqlite.Client
	retriever *knowledge.Retriever
}

func NewKnowledgeHandler(store *sqlite.Client, retriever *knowledge.Retriever) *KnowledgeHandler {
	return &KnowledgeHandler{
		store:     store,
		retriever: retriever,
	}
}

func (h *KnowledgeHandler) ListEntries(c *fiber.Ctx) error {
	contentType := models.ContentType(c.Query("type"))
	if contentType != "" && !contentType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "type must be 'resolution' or 'sop'",
		})
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}

	entries, err := h.store.ListEntries(c.Context(), contentType, limit)
	if err != nil {
		logger.Error("Failed to list knowledge entries", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list knowledge entries",
		})
	}

	if entries == nil {
		entries = []models.KnowledgeEntry{}
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	var req struct {
		Query       string `json:"query"`
		ContentType string `json:"content_type"`
		Limit       int    `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	contentType := models.ContentType(req.ContentType)
	if req.ContentType == "" {
		contentType = models.ContentTypeResolution
	}
	if !contentType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content_type must be 'resolution' or 'sop'",
		})
	}

	limit := req.Limit
	if limit <= 0 || limit > knowledge.DefaultSearchLimit*10 {
		limit = knowledge.DefaultSearchLimit
	}

	results := h.retriever.Retrieve(c.Context(), req.Query, contentType, limit)
	if results == nil {
		results = []models.RetrievalResult{}
	}

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}
