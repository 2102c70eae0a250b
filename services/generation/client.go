// Package generation wraps the external text-generation collaborator.
// The gateway treats it as a black box with its own fixed timeout; retry
// policy belongs to callers, never to this package.
package generation

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/quotagate/gateway/config"
	"github.com/quotagate/gateway/services"
	"go.uber.org/zap"
)

// Generator produces text for a prompt. Implementations classify failures
// into the upstream error taxonomy.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// OpenAIClient implements Generator against an OpenAI-compatible API
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIClient creates a new generation client
func NewOpenAIClient(cfg config.GenerationConfig, logger *zap.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Generate performs one completion call bounded by the configured timeout
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		classified := classifyError(err)
		c.logger.Warn("generation call failed",
			zap.String("code", services.GetErrorCode(classified)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", services.WrapError(services.ErrUpstreamRejected, errors.New("empty completion"))
	}

	c.logger.Debug("generation call succeeded",
		zap.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// classifyError maps transport and API failures onto the upstream taxonomy
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.WrapError(services.ErrUpstreamTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return services.WrapError(services.ErrUpstreamUnavailable, err)
		case apiErr.HTTPStatusCode >= 400:
			return services.WrapError(services.ErrUpstreamRejected, err)
		}
	}

	return services.WrapError(services.ErrUpstreamUnavailable, err)
}
