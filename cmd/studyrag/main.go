package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/config"
	dbRedis "github.com/study-cloud/studyrag/internal/db/redis"
	logpkg "github.com/study-cloud/studyrag/internal/logger"
	"github.com/study-cloud/studyrag/internal/metrics"
	indexrepo "github.com/study-cloud/studyrag/internal/repository/index"
	retrievalrepo "github.com/study-cloud/studyrag/internal/repository/retrieval"
	chiTransport "github.com/study-cloud/studyrag/internal/transport/chi"
	openaiTransport "github.com/study-cloud/studyrag/internal/transport/openai"
	answeruc "github.com/study-cloud/studyrag/internal/usecase/answer"
	examuc "github.com/study-cloud/studyrag/internal/usecase/exam"
	healthuc "github.com/study-cloud/studyrag/internal/usecase/health"
	retrievaluc "github.com/study-cloud/studyrag/internal/usecase/retrieval"
	"github.com/study-cloud/studyrag/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting studyrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register model metrics explicitly (no init())
	metrics.RegisterModelMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Models.APIKey,
		BaseURL:    cfg.Models.BaseURL,
		Model:      cfg.Models.EmbeddingModel,
		Dimensions: cfg.Models.EmbeddingDimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:   cfg.Models.APIKey,
		BaseURL:  cfg.Models.BaseURL,
		Model:    cfg.Models.ChatModel,
		Provider: "openai",
		Logger:   logger,
	})
	logger.Info("Model providers created",
		zap.String("embedding_model", cfg.Models.EmbeddingModel),
		zap.String("chat_model", cfg.Models.ChatModel),
		zap.Int("dimensions", cfg.Models.EmbeddingDimensions),
	)

	// Repositories
	chunkIndex := indexrepo.New(store, indexrepo.Config{
		Name:      cfg.Index.Name,
		KeyPrefix: cfg.Index.KeyPrefix,
		VectorDim: cfg.Models.EmbeddingDimensions,
		BatchSize: cfg.Index.BatchSize,
	})
	searchRepo := retrievalrepo.New(store, cfg.Index.Name, cfg.Index.KeyPrefix)

	// The index must answer queries before the API accepts traffic.
	if err := chunkIndex.Ensure(ctx); err != nil {
		logger.Fatal("Failed to ensure chunk index", zap.Error(err))
	}

	// Use case services
	retrievalSvc := retrievaluc.New(embedder, searchRepo, logger)
	answerSvc := answeruc.New(retrievalSvc, generator, answeruc.Config{
		TopK:           cfg.Retrieval.TopK,
		ScoreThreshold: cfg.Retrieval.ScoreThreshold,
		MaxRetries:     cfg.Generation.MaxRetries,
		RetryDelay:     time.Duration(cfg.Generation.RetryDelaySec) * time.Second,
	}, logger)
	composer := examuc.NewComposer(generator, cfg.Exam.PassageRunes,
		rand.New(rand.NewSource(time.Now().UnixNano())), logger)
	grader := examuc.NewGrader(generator, logger)
	healthSvc := healthuc.New(store, embedder)

	// HTTP server
	server := chiTransport.NewServer(answerSvc, composer, grader, healthSvc, chiTransport.Config{
		CorpusDir:    cfg.Corpus.Dir,
		MaxQuestions: cfg.Exam.MaxQuestions,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success": false,
						"error":   "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
