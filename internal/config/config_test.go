package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Models: ModelsConfig{
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
		},
		Chunking: ChunkingConfig{Size: 500, Overlap: 50},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingModels(t *testing.T) {
	cfg := validConfig()
	cfg.Models.EmbeddingModel = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}

	cfg = validConfig()
	cfg.Models.ChatModel = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing chat model")
	}
}

func TestValidate_OverlapNotSmallerThanSize(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking = ChunkingConfig{Size: 100, Overlap: 100}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for overlap >= size")
	}

	expected := "chunking.overlap must be smaller than chunking.size, got 100 >= 100"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ThresholdAboveOne(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.ScoreThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Models.EmbeddingDimensions != 384 {
		t.Errorf("expected EmbeddingDimensions=384, got %d", cfg.Models.EmbeddingDimensions)
	}
	if cfg.Index.Name != "text-chunks-index" {
		t.Errorf("expected Name='text-chunks-index', got %q", cfg.Index.Name)
	}
	if cfg.Index.KeyPrefix != "studyrag:chunk:" {
		t.Errorf("expected KeyPrefix='studyrag:chunk:', got %q", cfg.Index.KeyPrefix)
	}
	if cfg.Index.BatchSize != 100 {
		t.Errorf("expected BatchSize=100, got %d", cfg.Index.BatchSize)
	}
	if cfg.Chunking.Size != 500 {
		t.Errorf("expected Size=500, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap != 50 {
		t.Errorf("expected Overlap=50, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ScoreThreshold != 0.4 {
		t.Errorf("expected ScoreThreshold=0.4, got %g", cfg.Retrieval.ScoreThreshold)
	}
	if cfg.Generation.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.Generation.MaxRetries)
	}
	if cfg.Generation.RetryDelaySec != 2 {
		t.Errorf("expected RetryDelaySec=2, got %d", cfg.Generation.RetryDelaySec)
	}
	if cfg.Exam.PassageRunes != 500 {
		t.Errorf("expected PassageRunes=500, got %d", cfg.Exam.PassageRunes)
	}
	if cfg.Exam.MaxQuestions != 20 {
		t.Errorf("expected MaxQuestions=20, got %d", cfg.Exam.MaxQuestions)
	}
	if cfg.Corpus.Dir != "data" {
		t.Errorf("expected Dir='data', got %q", cfg.Corpus.Dir)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 120, ShutdownSec: 5},
		Database:   DatabaseConfig{ReadinessTimeout: 15},
		Index:      IndexConfig{Name: "custom-index", KeyPrefix: "custom:", BatchSize: 50},
		Chunking:   ChunkingConfig{Size: 1000, Overlap: 100},
		Retrieval:  RetrievalConfig{TopK: 5, ScoreThreshold: 0.6},
		Generation: GenerationConfig{MaxRetries: 5, RetryDelaySec: 1},
		Corpus:     CorpusConfig{Dir: "corpus"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Index.Name != "custom-index" {
		t.Errorf("expected Name='custom-index', got %q", cfg.Index.Name)
	}
	if cfg.Chunking.Size != 1000 {
		t.Errorf("expected Size=1000, got %d", cfg.Chunking.Size)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ScoreThreshold != 0.6 {
		t.Errorf("expected ScoreThreshold=0.6, got %g", cfg.Retrieval.ScoreThreshold)
	}
	if cfg.Generation.MaxRetries != 5 {
		t.Errorf("expected MaxRetries=5, got %d", cfg.Generation.MaxRetries)
	}
	if cfg.Corpus.Dir != "corpus" {
		t.Errorf("expected Dir='corpus', got %q", cfg.Corpus.Dir)
	}
}
