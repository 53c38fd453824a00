// Package answer composes grounded prompts and generates answers with
// bounded retries.
package answer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/domain"
)

// FallbackAnswer is returned when every generation attempt fails.
const FallbackAnswer = "Sorry, an answer could not be generated right now. Please try again later."

// Config holds retrieval gate defaults and generation retry parameters.
type Config struct {
	TopK           int
	ScoreThreshold float64
	MaxRetries     int
	RetryDelay     time.Duration
}

// Service answers queries over the retrieval gate.
type Service struct {
	retriever Retriever
	gen       Generator
	cfg       Config
	logger    *zap.Logger

	// sleep is injectable so retry tests run without real waits.
	sleep func(time.Duration)
}

// New creates an answer service.
func New(retriever Retriever, gen Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Service{
		retriever: retriever,
		gen:       gen,
		cfg:       cfg,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Answer retrieves context for the query and generates a grounded answer.
// Gate-rejected queries return the retrieval explanation as the answer
// without calling the model.
func (s *Service) Answer(ctx context.Context, query string) (string, domain.RetrievalResult) {
	res := s.retriever.Retrieve(ctx, query, s.cfg.TopK, s.cfg.ScoreThreshold)
	if !res.Accepted {
		return res.Context, res
	}

	prompt := ComposePrompt(query, res.Context)
	return s.Generate(ctx, prompt), res
}

// Generate calls the model with bounded retries and a fixed backoff. It
// never returns an error: exhaustion yields the fallback answer. An empty
// reply counts as a failed attempt.
func (s *Service) Generate(ctx context.Context, prompt string) string {
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		reply, err := s.gen.GenerateContent(ctx, prompt)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply
		}

		if err != nil {
			s.logger.Warn("generation attempt failed",
				zap.Int("attempt", attempt), zap.Error(err))
		} else {
			s.logger.Warn("generation attempt returned empty reply",
				zap.Int("attempt", attempt))
		}

		if attempt < s.cfg.MaxRetries {
			s.sleep(s.cfg.RetryDelay)
		}
	}

	s.logger.Error("generation retries exhausted", zap.Int("attempts", s.cfg.MaxRetries))
	return FallbackAnswer
}
