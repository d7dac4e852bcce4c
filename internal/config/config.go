// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	Collection     string `yaml:"collection"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (q *QdrantConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutSeconds) * time.Second
}

// StorageConfig holds the path for the document registry database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedding service settings.
// Provider is "openai" (any OpenAI-compatible endpoint) or "mock".
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	CacheSize      int    `yaml:"cache_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LLMConfig holds answer-generation service settings.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RAGConfig holds chunking, retrieval, and retry settings for the pipeline.
type RAGConfig struct {
	MaxChunkSize       int     `yaml:"max_chunk_size"`
	ChunkOverlap       int     `yaml:"chunk_overlap"`
	TopK               int     `yaml:"top_k"`
	ScoreThreshold     float64 `yaml:"score_threshold"`
	MaxAttempts        int     `yaml:"max_attempts"`
	BackoffBaseSeconds int     `yaml:"backoff_base_seconds"`
}

// WatchConfig holds directory watch settings for automatic ingestion.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
