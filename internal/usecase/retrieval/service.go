// Package retrieval embeds user queries and gates KNN matches behind a
// confidence threshold.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/domain"
)

// NoMatchesContext explains a query that found nothing in the index.
const NoMatchesContext = "No relevant information was found in the knowledge base."

// belowThresholdFormat explains a query whose best match failed the gate.
// It reports the real best score, which is why similarity is never clamped.
const belowThresholdFormat = "The most relevant match scored %.4f, below the required threshold of %.2f. The knowledge base may not cover this question."

// Service retrieves grounding context for a query. Embedding and search
// failures are recovered into an empty result so the caller can still answer
// with the fixed explanation instead of an error page.
type Service struct {
	embed    Embedder
	searcher Searcher
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(embed Embedder, searcher Searcher, logger *zap.Logger) *Service {
	return &Service{embed: embed, searcher: searcher, logger: logger}
}

// Retrieve embeds the query, searches the chunk index for the k nearest
// chunks and applies the confidence gate at threshold. Both parameters are
// per call, so callers can tighten or relax the gate per query. It never
// returns an error: failures degrade to the no-matches result.
func (s *Service) Retrieve(ctx context.Context, query string, k int, threshold float64) domain.RetrievalResult {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed", zap.Error(err))
		return noMatches()
	}

	matches, err := s.searcher.Search(ctx, emb.Embedding, k)
	if err != nil {
		s.logger.Warn("vector search failed", zap.Error(err))
		return noMatches()
	}
	if len(matches) == 0 {
		return noMatches()
	}

	maxScore := matches[0].Score
	for _, m := range matches[1:] {
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}

	if maxScore < threshold {
		return domain.RetrievalResult{
			Matches:  matches,
			MaxScore: maxScore,
			Context:  fmt.Sprintf(belowThresholdFormat, maxScore, threshold),
		}
	}

	return domain.RetrievalResult{
		Matches:  matches,
		MaxScore: maxScore,
		Accepted: true,
		Context:  formatContext(matches),
	}
}

// formatContext renders accepted matches as ranked reference blocks.
func formatContext(matches []domain.RetrievalMatch) string {
	blocks := make([]string, 0, len(matches))
	for i, m := range matches {
		blocks = append(blocks, fmt.Sprintf(
			"=== Reference %d (similarity: %.4f) ===\nSource: %s\nContent: %s",
			i+1, m.Score, m.SourceFile, m.Text,
		))
	}
	return strings.Join(blocks, "\n\n")
}

func noMatches() domain.RetrievalResult {
	return domain.RetrievalResult{Context: NoMatchesContext}
}
