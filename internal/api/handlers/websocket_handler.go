package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/generation"
	"github.com/issueops/backend/internal/storage"
	"github.com/issueops/backend/pkg/logger"
)

// WebSocketHandler streams artifact generation over a socket so helpdesk UIs
// can show progress instead of blocking on the HTTP call.
type WebSocketHandler struct {
	service *generation.Service
}

func NewWebSocketHandler(service *generation.Service) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			IssueID string `json:"issue_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		switch msg.Type {
		case "generate_resolution":
			h.streamResolution(c, msg.IssueID)
		case "generate_sop":
			h.streamSOP(c, msg.IssueID)
		default:
			h.sendError(c, "Unknown message type")
		}
	}
}

func (h *WebSocketHandler) streamResolution(c *websocket.Conn, issueID string) {
	h.sendChunk(c, "status", "Generating resolution...")

	resolution, err := h.service.GenerateResolutionForIssue(context.Background(), issueID)
	if err != nil {
		h.sendError(c, generationErrorMessage(err))
		return
	}

	h.streamText(c, resolution.ResolutionText)
	c.WriteJSON(map[string]interface{}{
		"type":        "complete",
		"artifact_id": resolution.ID,
		"model":       resolution.ModelUsed,
	})
}

func (h *WebSocketHandler) streamSOP(c *websocket.Conn, issueID string) {
	h.sendChunk(c, "status", "Generating SOP...")

	sop, err := h.service.GenerateSOPForIssue(context.Background(), issueID)
	if err != nil {
		h.sendError(c, generationErrorMessage(err))
		return
	}

	h.streamText(c, sop.SOPText)
	c.WriteJSON(map[string]interface{}{
		"type":        "complete",
		"artifact_id": sop.ID,
		"model":       sop.ModelUsed,
	})
}

func (h *WebSocketHandler) streamText(c *websocket.Conn, text string) {
	words := splitIntoWords(text)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			logger.Debug("WebSocket stream interrupted", zap.Error(err))
			return
		}
	}
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func generationErrorMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "Issue not found"
	case errors.Is(err, generation.ErrDuplicateGeneration):
		return "Artifact already generated for this issue"
	case errors.Is(err, generation.ErrIssueNotResolved):
		return "Issue must be resolved first"
	case errors.Is(err, generation.ErrNoQualifiedResolution):
		return "Issue needs a resolution rated 4 or higher"
	}

	logger.Error("WebSocket generation failed", zap.Error(err))
	return "Generation failed"
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
