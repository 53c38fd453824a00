package retrieval

import (
	"context"

	"github.com/study-cloud/studyrag/internal/domain"
)

// Searcher runs top-k vector similarity search over the chunk index.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalMatch, error)
}

// Embedder vectorizes the user query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
