// Package index manages the chunk vector index lifecycle and batched upserts.
package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/study-cloud/studyrag/internal/db"
	"github.com/study-cloud/studyrag/internal/domain"
)

// store is the consumer interface for index operations (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config holds index identity and batching parameters.
type Config struct {
	Name      string
	KeyPrefix string
	VectorDim int
	BatchSize int
}

// BatchResult reports the outcome of one upsert batch.
type BatchResult struct {
	Batch int
	Count int
	Err   error
}

// Repo implements the indexer used by ingestion.
type Repo struct {
	store store
	cfg   Config

	// overridable in tests to avoid real waits
	readyPoll time.Duration
	readyMax  time.Duration
	settle    time.Duration
}

// New creates an index repository.
func New(s store, cfg Config) *Repo {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Repo{
		store:     s,
		cfg:       cfg,
		readyPoll: 500 * time.Millisecond,
		readyMax:  30 * time.Second,
		settle:    time.Second,
	}
}

// Ensure creates the FT index if absent and waits until it answers FT.INFO.
func (r *Repo) Ensure(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.Name)
	if err != nil {
		return fmt.Errorf("probe index %s: %w", r.cfg.Name, err)
	}
	if exists {
		return nil
	}

	def := r.definition()
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.Name, err)
	}

	return r.waitReady(ctx)
}

// Upsert stores chunks with their embeddings in batches. Each batch gets its
// own result; a failed batch never aborts or invalidates earlier batches.
func (r *Repo) Upsert(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) ([]BatchResult, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	var results []BatchResult
	for start := 0; start < len(chunks); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		items := make([]db.HashSetItem, 0, end-start)
		for i := start; i < end; i++ {
			id := chunks[i].ID
			if id == "" {
				id = uuid.NewString()
			}
			items = append(items, db.HashSetItem{
				Key: r.cfg.KeyPrefix + id,
				Fields: map[string]string{
					"text":        chunks[i].Text,
					"source_file": chunks[i].SourceFile,
					"chunk_index": strconv.Itoa(chunks[i].ChunkIndex),
					"vector":      vectorToBytes(embeddings[i]),
				},
			})
		}

		res := BatchResult{Batch: start / r.cfg.BatchSize, Count: len(items)}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			res.Err = fmt.Errorf("upsert batch %d: %w", res.Batch, err)
			res.Count = 0
		}
		results = append(results, res)
	}

	return results, nil
}

// Clear drops the index, deletes all chunk keys, waits for propagation and
// recreates an empty index. An absent index is treated as success.
func (r *Repo) Clear(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.cfg.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.cfg.Name, err)
	}

	keys, err := r.store.Scan(ctx, r.cfg.KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan chunk keys: %w", err)
	}
	if len(keys) > 0 {
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete chunk keys: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.settle):
	}

	if err := r.store.CreateIndex(ctx, r.definition()); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("recreate index %s: %w", r.cfg.Name, err)
	}
	return r.waitReady(ctx)
}

// Stats returns the total number of indexed vectors.
func (r *Repo) Stats(ctx context.Context) (int, error) {
	count, err := r.store.SearchCount(ctx, r.cfg.Name, "*")
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return count, nil
}

func (r *Repo) definition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     r.cfg.Name,
		Prefixes: []string{r.cfg.KeyPrefix},
		Fields: []db.IndexField{
			{Name: "text", Type: db.IndexFieldText},
			{Name: "source_file", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{
				Name:           "vector",
				Type:           db.IndexFieldVector,
				VectorDim:      r.cfg.VectorDim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
}

// waitReady polls FT.INFO until the index answers or the deadline passes.
func (r *Repo) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.readyMax)
	defer cancel()

	ticker := time.NewTicker(r.readyPoll)
	defer ticker.Stop()

	for {
		exists, err := r.store.IndexExists(ctx, r.cfg.Name)
		if err == nil && exists {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("index %s not ready: %w", r.cfg.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
