// Command studyrag-ingest rebuilds the vector index from the corpus directory.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/config"
	dbRedis "github.com/study-cloud/studyrag/internal/db/redis"
	logpkg "github.com/study-cloud/studyrag/internal/logger"
	"github.com/study-cloud/studyrag/internal/metrics"
	indexrepo "github.com/study-cloud/studyrag/internal/repository/index"
	openaiTransport "github.com/study-cloud/studyrag/internal/transport/openai"
	ingestuc "github.com/study-cloud/studyrag/internal/usecase/ingest"
	"github.com/study-cloud/studyrag/internal/version"
)

func main() {
	var (
		corpusDir = flag.String("corpus", "", "corpus directory (default from config)")
		reset     = flag.Bool("reset", true, "clear the index before loading")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	dir := cfg.Corpus.Dir
	if *corpusDir != "" {
		dir = *corpusDir
	}

	logger.Info("Starting corpus ingestion",
		zap.String("version", version.Version),
		zap.String("corpus", dir),
		zap.Bool("reset", *reset),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterModelMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Models.APIKey,
		BaseURL:    cfg.Models.BaseURL,
		Model:      cfg.Models.EmbeddingModel,
		Dimensions: cfg.Models.EmbeddingDimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	chunkIndex := indexrepo.New(store, indexrepo.Config{
		Name:      cfg.Index.Name,
		KeyPrefix: cfg.Index.KeyPrefix,
		VectorDim: cfg.Models.EmbeddingDimensions,
		BatchSize: cfg.Index.BatchSize,
	})

	if *reset {
		logger.Info("Clearing existing index")
		if err := chunkIndex.Clear(ctx); err != nil {
			logger.Fatal("Failed to clear index", zap.Error(err))
		}
	}

	svc := ingestuc.New(embedder, chunkIndex, ingestuc.Config{
		ChunkSize:  cfg.Chunking.Size,
		Overlap:    cfg.Chunking.Overlap,
		EmbedBatch: cfg.Index.BatchSize,
	}, logger)

	reports, err := svc.IngestDir(ctx, dir)
	if err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err))
	}

	var files, failed, chunks int
	for _, r := range reports {
		if r.Err != nil {
			failed++
			continue
		}
		files++
		chunks += r.Indexed
	}

	total, err := chunkIndex.Stats(ctx)
	if err != nil {
		logger.Warn("Failed to read index stats", zap.Error(err))
	}

	logger.Info("Ingestion complete",
		zap.Int("files", files),
		zap.Int("failed", failed),
		zap.Int("chunks_indexed", chunks),
		zap.Int("index_total", total),
	)
}
