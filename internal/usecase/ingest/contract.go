package ingest

import (
	"context"

	"github.com/study-cloud/studyrag/internal/domain"
	"github.com/study-cloud/studyrag/internal/repository/index"
)

// Embedder vectorizes a batch of chunk texts.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Indexer persists embedded chunks into the vector index.
type Indexer interface {
	Ensure(ctx context.Context) error
	Upsert(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) ([]index.BatchResult, error)
}
