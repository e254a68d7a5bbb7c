package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/promotion"
	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/internal/storage/models"
	"github.com/issueops/backend/internal/storage/sqlite"
	"github.com/issueops/backend/pkg/logger"
)

type RatingHandler struct {
	store    *sqlite.Client
	promoter *promotion.Promoter
}

func NewRatingHandler(store *sqlite.Client, promoter *promotion.Promoter) *RatingHandler {
	return &RatingHandler{
		store:    store,
		promoter: promoter,
	}
}

// SubmitRating records a rating against a generated resolution or SOP. The
// rating is stored on the artifact itself, and content rated 4 or above is
// promoted into the knowledge base.
func (h *RatingHandler) SubmitRating(c *fiber.Ctx) error {
	var req struct {
		TargetType string `json:"target_type"`
		TargetID   string `json:"target_id"`
		Rating     int    `json:"rating"`
		Feedback   string `json:"feedback"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	targetType := models.ContentType(req.TargetType)
	if !targetType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "target_type must be 'resolution' or 'sop'",
		})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rating must be between 1 and 5",
		})
	}

	content, err := h.applyRating(c, targetType, req.TargetID, req.Rating, req.Feedback)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Rated artifact not found",
		})
	}
	if err != nil {
		logger.Error("Failed to store rating", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store rating",
		})
	}

	err = h.promoter.OnRated(c.Context(), req.TargetID, content, targetType, req.Rating, req.Feedback)
	if errors.Is(err, promotion.ErrConcurrentUpdate) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Knowledge base is busy, please retry the rating",
		})
	}
	if err != nil {
		logger.Error("Failed to promote rated content", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process rating",
		})
	}

	return c.JSON(fiber.Map{
		"target_type": targetType,
		"target_id":   req.TargetID,
		"rating":      req.Rating,
	})
}

// applyRating persists the rating on the artifact and returns the artifact
// text, which drives promotion.
func (h *RatingHandler) applyRating(c *fiber.Ctx, targetType models.ContentType, targetID string, rating int, feedback string) (string, error) {
	ctx := c.Context()

	switch targetType {
	case models.ContentTypeResolution:
		resolution, err := h.store.GetResolution(ctx, targetID)
		if err != nil {
			return "", err
		}
		if err := h.store.SetResolutionRating(ctx, targetID, rating, feedback); err != nil {
			return "", err
		}
		return resolution.ResolutionText, nil
	default:
		sop, err := h.store.GetSOP(ctx, targetID)
		if err != nil {
			return "", err
		}
		if err := h.store.SetSOPRating(ctx, targetID, rating, feedback); err != nil {
			return "", err
		}
		return sop.SOPText, nil
	}
}
