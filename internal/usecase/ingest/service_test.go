package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/domain"
	"github.com/study-cloud/studyrag/internal/repository/index"
)

// --- Mocks ---

type mockEmbedder struct {
	err      error
	short    bool
	gotTexts [][]string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.gotTexts = append(m.gotTexts, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	embeddings := make([][]float32, n)
	for i := range embeddings {
		embeddings[i] = []float32{0.1, 0.2}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: n * 3}, nil
}

type mockIndexer struct {
	ensureErr  error
	upsertErr  error
	batchErrAt int // 1-based upsert call whose batch reports an error, 0 = none
	ensures    int
	gotChunks  [][]domain.Chunk
}

func (m *mockIndexer) Ensure(_ context.Context) error {
	m.ensures++
	return m.ensureErr
}

func (m *mockIndexer) Upsert(_ context.Context, chunks []domain.Chunk, embeddings [][]float32) ([]index.BatchResult, error) {
	m.gotChunks = append(m.gotChunks, chunks)
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	res := index.BatchResult{Batch: 0, Count: len(chunks)}
	if m.batchErrAt == len(m.gotChunks) {
		res.Err = errors.New("write failed")
		res.Count = 0
	}
	return []index.BatchResult{res}, nil
}

func newService(embed *mockEmbedder, idx *mockIndexer, cfg Config) *Service {
	return New(embed, idx, cfg, zap.NewNop())
}

// --- Tests ---

func TestIngestFile_ChunksEmbedsAndIndexes(t *testing.T) {
	embed := &mockEmbedder{}
	idx := &mockIndexer{}
	svc := newService(embed, idx, Config{ChunkSize: 10, Overlap: 0, EmbedBatch: 100})
	svc.readFile = func(path string) (string, error) {
		return strings.Repeat("abcde ", 5), nil // 30 runes, 3 chunks of 10
	}

	report, err := svc.IngestFile(context.Background(), "/corpus/notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.File != "notes.txt" {
		t.Errorf("File = %q, want notes.txt", report.File)
	}
	if report.Chunks != report.Indexed || report.Chunks == 0 {
		t.Errorf("expected all chunks indexed, got %+v", report)
	}
	if len(idx.gotChunks) != 1 {
		t.Fatalf("expected 1 upsert call, got %d", len(idx.gotChunks))
	}
	for i, c := range idx.gotChunks[0] {
		if c.SourceFile != "notes.txt" || c.ChunkIndex != i {
			t.Errorf("chunk %d metadata wrong: %+v", i, c)
		}
	}
}

func TestIngestFile_EmbedsInBatches(t *testing.T) {
	embed := &mockEmbedder{}
	idx := &mockIndexer{}
	svc := newService(embed, idx, Config{ChunkSize: 10, Overlap: 0, EmbedBatch: 2})
	svc.readFile = func(path string) (string, error) {
		return strings.Repeat("x", 50), nil // 5 chunks
	}

	if _, err := svc.IngestFile(context.Background(), "big.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(embed.gotTexts) != 3 {
		t.Fatalf("expected 3 embed batches, got %d", len(embed.gotTexts))
	}
	sizes := []int{len(embed.gotTexts[0]), len(embed.gotTexts[1]), len(embed.gotTexts[2])}
	if sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", sizes)
	}
}

func TestIngestFile_ReadError(t *testing.T) {
	svc := newService(&mockEmbedder{}, &mockIndexer{}, Config{})
	svc.readFile = func(path string) (string, error) {
		return "", domain.ErrFileNotFound
	}

	_, err := svc.IngestFile(context.Background(), "missing.txt")
	if !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestIngestFile_EmbedError(t *testing.T) {
	embed := &mockEmbedder{err: errors.New("quota exceeded")}
	idx := &mockIndexer{}
	svc := newService(embed, idx, Config{})
	svc.readFile = func(path string) (string, error) { return "some text", nil }

	if _, err := svc.IngestFile(context.Background(), "doc.txt"); err == nil {
		t.Fatal("expected error")
	}
	if len(idx.gotChunks) != 0 {
		t.Error("upsert must not run after a failed embed")
	}
}

func TestIngestFile_VectorCountMismatch(t *testing.T) {
	embed := &mockEmbedder{short: true}
	svc := newService(embed, &mockIndexer{}, Config{})
	svc.readFile = func(path string) (string, error) { return "some text", nil }

	if _, err := svc.IngestFile(context.Background(), "doc.txt"); err == nil {
		t.Fatal("expected error for vector count mismatch")
	}
}

func TestIngestFile_FailedBatchReportedNotFatal(t *testing.T) {
	embed := &mockEmbedder{}
	idx := &mockIndexer{batchErrAt: 1}
	svc := newService(embed, idx, Config{ChunkSize: 10, Overlap: 0, EmbedBatch: 2})
	svc.readFile = func(path string) (string, error) {
		return strings.Repeat("x", 40), nil // 4 chunks, 2 embed batches
	}

	report, err := svc.IngestFile(context.Background(), "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Chunks != 4 || report.Indexed != 2 {
		t.Errorf("report = %+v, want Chunks 4 Indexed 2", report)
	}
}

func TestIngestDir_SkipsFailingFiles(t *testing.T) {
	embed := &mockEmbedder{}
	idx := &mockIndexer{}
	svc := newService(embed, idx, Config{ChunkSize: 10, Overlap: 0})
	svc.listFiles = func(dir string) ([]string, error) {
		return []string{"bad.txt", "good.txt"}, nil
	}
	svc.readFile = func(path string) (string, error) {
		if strings.HasSuffix(path, "bad.txt") {
			return "", domain.ErrEmptyDocument
		}
		return "enough text here", nil
	}

	reports, err := svc.IngestDir(context.Background(), "/corpus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.ensures != 1 {
		t.Errorf("expected one Ensure call, got %d", idx.ensures)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Err == nil {
		t.Error("expected error recorded for bad.txt")
	}
	if reports[1].Err != nil || reports[1].Indexed == 0 {
		t.Errorf("good.txt should ingest: %+v", reports[1])
	}
}

func TestIngestDir_EnsureError(t *testing.T) {
	idx := &mockIndexer{ensureErr: fmt.Errorf("redis down")}
	svc := newService(&mockEmbedder{}, idx, Config{})

	if _, err := svc.IngestDir(context.Background(), "/corpus"); err == nil {
		t.Fatal("expected error")
	}
}
