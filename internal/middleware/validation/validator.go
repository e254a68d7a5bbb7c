package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|delete\s+from|exec\s*\(|<script)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

type Config struct {
	MaxTitleLength       int
	MaxDescriptionLength int
	AllowedContentTypes  []string
	Logger               *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxTitleLength == 0 {
		cfg.MaxTitleLength = 500
	}
	if cfg.MaxDescriptionLength == 0 {
		cfg.MaxDescriptionLength = 50000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PATCH" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if c.Method() == "POST" && strings.HasSuffix(path, "/issues") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			title, ok := req["title"].(string)
			if !ok || strings.TrimSpace(title) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Title is required and must be a string",
				})
			}
			if len(title) > cfg.MaxTitleLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Title exceeds maximum length",
				})
			}

			description, _ := req["description"].(string)
			if len(description) > cfg.MaxDescriptionLength {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Description exceeds maximum length",
				})
			}

			if suspicious(title) {
				cfg.Logger.Warn("Suspicious issue title rejected",
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid title content",
				})
			}
		}

		if c.Method() == "POST" && strings.HasSuffix(path, "/ratings") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			rating, ok := req["rating"].(float64)
			if !ok || rating != float64(int(rating)) || rating < 1 || rating > 5 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Rating must be an integer between 1 and 5",
				})
			}
		}

		return c.Next()
	}
}

func suspicious(input string) bool {
	return sqlInjectionPattern.MatchString(input) || xssPattern.MatchString(input)
}
