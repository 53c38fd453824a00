package answer

import (
	"context"

	"github.com/study-cloud/studyrag/internal/domain"
)

// Generator produces free text from a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Retriever supplies gated grounding context for a query. The match count
// and confidence threshold are chosen by the caller per request.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, threshold float64) domain.RetrievalResult
}
