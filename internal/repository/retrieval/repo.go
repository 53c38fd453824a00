// Package retrieval maps KNN search hits onto domain retrieval matches.
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/study-cloud/studyrag/internal/db"
	"github.com/study-cloud/studyrag/internal/domain"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/retrieval.Searcher.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
}

// New creates a retrieval repository.
func New(s store, indexName, keyPrefix string) *Repo {
	return &Repo{store: s, indexName: indexName, keyPrefix: keyPrefix}
}

// Search runs a top-k KNN query and returns matches ordered by similarity.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalMatch, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"text", "source_file", "chunk_index"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	matches := make([]domain.RetrievalMatch, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		m := domain.RetrievalMatch{
			ID:         strings.TrimPrefix(entry.Key, r.keyPrefix),
			Text:       entry.Fields["text"],
			SourceFile: entry.Fields["source_file"],
			Score:      entry.Score,
		}
		if idx, err := strconv.Atoi(entry.Fields["chunk_index"]); err == nil {
			m.ChunkIndex = idx
		}
		matches = append(matches, m)
	}
	return matches, nil
}
