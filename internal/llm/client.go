package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/generation"
	"github.com/issueops/backend/pkg/circuitbreaker"
	"github.com/issueops/backend/pkg/logger"
	"github.com/issueops/backend/pkg/retry"
)

// Client talks to an OpenAI-compatible generation backend. Pointed at a
// local server (Ollama, LM Studio) via baseURL; the API key is whatever the
// server expects, usually a placeholder.
type Client struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(baseURL, apiKey, model string, timeoutSec int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if timeoutSec <= 0 {
		timeoutSec = 60
	}

	logger.Info("LLM client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", model),
	)

	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// Generate implements generation.Backend. Failures bubble up to the caller,
// which decides whether to fall back to templates.
func (c *Client) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result *generation.Result

	err := c.cb.Execute(ctx, func() error {
		var execErr error
		result, execErr = retry.DoWithResult(ctx, c.retryConfig, func() (*generation.Result, error) {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: req.Options.Temperature,
					TopP:        req.Options.TopP,
					MaxTokens:   req.Options.MaxTokens,
				},
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("backend returned no choices")
			}

			logger.Debug("Completion generated",
				zap.String("model", resp.Model),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			return &generation.Result{
				Text:  resp.Choices[0].Message.Content,
				Model: resp.Model,
			}, nil
		})
		return execErr
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Healthy probes the backend's models endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.ListModels(ctx)
	return err == nil
}
