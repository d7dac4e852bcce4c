package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: 0.0.0.0
  port: 9090
qdrant:
  url: http://qdrant:6333
  collection: notes
rag:
  max_chunk_size: 800
  score_threshold: 0.5
storage:
  database_path: ./data/db/documents.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Qdrant.Collection != "notes" {
		t.Errorf("collection = %s", cfg.Qdrant.Collection)
	}
	if cfg.RAG.MaxChunkSize != 800 {
		t.Errorf("max_chunk_size = %d", cfg.RAG.MaxChunkSize)
	}
	if cfg.RAG.ScoreThreshold != 0.5 {
		t.Errorf("score_threshold = %f", cfg.RAG.ScoreThreshold)
	}
	// Unset values get defaults.
	if cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("chunk_overlap default = %d", cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.MaxAttempts != 5 {
		t.Errorf("max_attempts default = %d", cfg.RAG.MaxAttempts)
	}
	// Relative ./ paths are expanded against the config dir.
	want := filepath.Join(dir, "data/db/documents.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Qdrant.URL != "http://localhost:6333" {
		t.Errorf("qdrant url = %s", cfg.Qdrant.URL)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("dimensions = %d", cfg.Embedding.Dimensions)
	}
	if cfg.RAG.MaxChunkSize != 500 || cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("chunking defaults = %d/%d", cfg.RAG.MaxChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.ScoreThreshold != 0.3 {
		t.Errorf("score_threshold = %f", cfg.RAG.ScoreThreshold)
	}
	if cfg.RAG.MaxAttempts != 5 || cfg.RAG.BackoffBaseSeconds != 4 {
		t.Errorf("retry defaults = %d/%d", cfg.RAG.MaxAttempts, cfg.RAG.BackoffBaseSeconds)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("watch extensions default should be set")
	}
}

func TestRecursiveOrDefault(t *testing.T) {
	w := &WatchConfig{}
	if !w.RecursiveOrDefault() {
		t.Error("unset recursive should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false should be respected")
	}
}
