package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/generation"
	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/pkg/logger"
)

type GenerationHandler struct {
	service *generation.Service
}

func NewGenerationHandler(service *generation.Service) *GenerationHandler {
	return &GenerationHandler{
		service: service,
	}
}

func (h *GenerationHandler) GenerateResolution(c *fiber.Ctx) error {
	resolution, err := h.service.GenerateResolutionForIssue(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapGenerationError(c, err, "resolution")
	}

	return c.Status(fiber.StatusCreated).JSON(resolution)
}

func (h *GenerationHandler) GenerateSOP(c *fiber.Ctx) error {
	sop, err := h.service.GenerateSOPForIssue(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapGenerationError(c, err, "sop")
	}

	return c.Status(fiber.StatusCreated).JSON(sop)
}

func (h *GenerationHandler) mapGenerationError(c *fiber.Ctx, err error, artifact string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Issue not found",
		})
	case errors.Is(err, generation.ErrDuplicateGeneration):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Artifact already generated for this issue",
		})
	case errors.Is(err, generation.ErrIssueNotResolved):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Issue must be resolved first",
		})
	case errors.Is(err, generation.ErrNoQualifiedResolution):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Issue needs a resolution rated 4 or higher",
		})
	}

	logger.Error("Generation failed",
		zap.String("artifact", artifact),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Generation failed",
	})
}
