// Package ingest turns corpus documents into indexed vector chunks.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/chunker"
	"github.com/study-cloud/studyrag/internal/domain"
	"github.com/study-cloud/studyrag/internal/parser"
)

// Config holds chunking and embedding batch parameters.
type Config struct {
	ChunkSize  int
	Overlap    int
	EmbedBatch int
}

// FileReport summarizes ingestion of a single document.
type FileReport struct {
	File    string
	Chunks  int
	Indexed int
	Err     error
}

// Service runs the parse, chunk, embed, upsert pipeline.
type Service struct {
	embed  Embedder
	idx    Indexer
	cfg    Config
	logger *zap.Logger

	// injectable for tests
	readFile  func(path string) (string, error)
	listFiles func(dir string) ([]string, error)
}

// New creates an ingestion service.
func New(embed Embedder, idx Indexer, cfg Config, logger *zap.Logger) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 100
	}
	return &Service{
		embed:     embed,
		idx:       idx,
		cfg:       cfg,
		logger:    logger,
		readFile:  parser.ReadFile,
		listFiles: parser.ListFiles,
	}
}

// IngestFile parses one document, splits it into overlapping chunks, embeds
// them batch by batch and upserts the vectors. Partial upsert failures are
// reported, not fatal.
func (s *Service) IngestFile(ctx context.Context, path string) (FileReport, error) {
	name := filepath.Base(path)
	report := FileReport{File: name}

	text, err := s.readFile(path)
	if err != nil {
		return report, fmt.Errorf("read %s: %w", name, err)
	}

	pieces := chunker.Split(text, s.cfg.ChunkSize, s.cfg.Overlap)
	if len(pieces) == 0 {
		return report, fmt.Errorf("chunk %s: %w", name, domain.ErrEmptyDocument)
	}
	report.Chunks = len(pieces)

	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{Text: p, SourceFile: name, ChunkIndex: i}
	}

	for start := 0; start < len(chunks); start += s.cfg.EmbedBatch {
		end := start + s.cfg.EmbedBatch
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		res, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("embed %s [%d:%d]: %w", name, start, end, err)
		}
		if len(res.Embeddings) != len(texts) {
			return report, fmt.Errorf("embed %s: got %d vectors for %d texts", name, len(res.Embeddings), len(texts))
		}

		batches, err := s.idx.Upsert(ctx, chunks[start:end], res.Embeddings)
		if err != nil {
			return report, fmt.Errorf("upsert %s: %w", name, err)
		}
		for _, b := range batches {
			if b.Err != nil {
				s.logger.Warn("chunk batch not indexed",
					zap.String("file", name), zap.Int("batch", b.Batch), zap.Error(b.Err))
				continue
			}
			report.Indexed += b.Count
		}
	}

	s.logger.Info("document ingested",
		zap.String("file", name),
		zap.Int("chunks", report.Chunks),
		zap.Int("indexed", report.Indexed))
	return report, nil
}

// IngestDir ensures the index exists and ingests every supported file in the
// directory. A failing file is recorded in its report and skipped.
func (s *Service) IngestDir(ctx context.Context, dir string) ([]FileReport, error) {
	if err := s.idx.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	files, err := s.listFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list corpus %s: %w", dir, err)
	}

	reports := make([]FileReport, 0, len(files))
	for _, f := range files {
		report, err := s.IngestFile(ctx, filepath.Join(dir, f))
		if err != nil {
			report.Err = err
			s.logger.Warn("document skipped", zap.String("file", f), zap.Error(err))
		}
		reports = append(reports, report)
	}
	return reports, nil
}
