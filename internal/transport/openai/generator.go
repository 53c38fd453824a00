package openai

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/metrics"
)

// Generator produces text via the chat completions endpoint.
type Generator struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// GeneratorConfig holds the chat model settings.
type GeneratorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// GenerateContent implements domain.Generator. An empty completion with no
// API error is returned as ("", nil); callers treat that as retryable.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, metrics.OpGeneration, "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(g.provider, g.model, metrics.OpGeneration, "api_error").Inc()
		return "", parseAPIError(err)
	}

	metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, metrics.OpGeneration, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(g.provider, g.model, metrics.OpGeneration).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	if len(resp.Choices) == 0 {
		g.logger.Warn("chat completion returned no choices", zap.String("model", g.model))
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
