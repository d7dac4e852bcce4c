// Package main is the kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory so "kotae server" from
// the project dir uses the project's config. Returns the config and the
// path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "chunks":
		runChunks()
	case "clear":
		runClear()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = newWatchService(cfg, components, logger, debugMode)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(components.Pipeline, components.Parser, components.Registry, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newWatchService wires the directory watcher to the ingestion pipeline:
// dropped files are parsed and ingested under their base name.
func newWatchService(cfg *config.Config, components *Components, logger *zap.Logger, debug bool) *watcher.Watcher {
	opts := []watcher.Option{}
	if debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	onIngest := func(path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("watch read failed", zap.String("path", path), zap.Error(err))
			return
		}
		name := filepath.Base(path)
		if !components.Parser.IsSupported(name) {
			return
		}
		parsed := components.Parser.Parse(data, name)
		if !parsed.Success {
			logger.Warn("watch parse failed", zap.String("path", path), zap.String("error", parsed.Err))
			return
		}
		result := components.Pipeline.Ingest(context.Background(), parsed.Text, name)
		if !result.Success {
			logger.Warn("watch ingest failed", zap.String("path", path), zap.String("message", result.Message))
		}
	}
	return watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		onIngest,
		opts...,
	)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	name := fs.String("name", "", "document name (default: file base name)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}
	docName := *name
	if docName == "" {
		docName = filepath.Base(path)
	}
	parsed := components.Parser.Parse(data, docName)
	if !parsed.Success {
		fmt.Printf("Failed to parse document: %s\n", parsed.Err)
		os.Exit(1)
	}

	result := components.Pipeline.Ingest(context.Background(), parsed.Text, docName)
	if !result.Success {
		fmt.Printf("Ingestion failed: %s\n", result.Message)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d chunk(s) from %s\n", result.ChunksCreated, docName)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of contexts to retrieve (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae query [flags] <question>")
		os.Exit(1)
	}

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	result := components.Pipeline.Query(context.Background(), question, *topK)

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(result.Answer)
		if len(result.Sources) > 0 {
			fmt.Println("\n# sources")
			for i, src := range result.Sources {
				fmt.Printf("[%d] %s (score %.3f)\n", i+1, src.SourceDocument, src.Score)
			}
		}
		fmt.Printf("\n%.1f ms\n", result.ProcessingTimeMs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	fmt.Printf("collection:      %s\n", cfg.Qdrant.Collection)
	fmt.Printf("points:          %d   # stored chunk vectors\n", components.Pipeline.DocumentCount(ctx))
	if components.Registry != nil {
		if count, err := components.Registry.CountDocuments(ctx); err == nil {
			fmt.Printf("documents:       %d   # ingested documents\n", count)
		}
	}
	fmt.Println("\n# configuration")
	fmt.Printf("max_chunk_size:  %d\n", cfg.RAG.MaxChunkSize)
	fmt.Printf("chunk_overlap:   %d\n", cfg.RAG.ChunkOverlap)
	fmt.Printf("top_k:           %d\n", cfg.RAG.TopK)
	fmt.Printf("score_threshold: %.2f\n", cfg.RAG.ScoreThreshold)
	fmt.Printf("dimensions:      %d\n", cfg.Embedding.Dimensions)
}

func runChunks() {
	fs := flag.NewFlagSet("chunks", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 50, "maximum chunks to list")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	chunks := components.Pipeline.ListChunks(context.Background(), *limit)
	if len(chunks) == 0 {
		fmt.Println("No chunks stored.")
		return
	}
	for _, c := range chunks {
		fmt.Printf("%s  %s[%d]\n    %s\n", c.ID, c.SourceDocument, c.ChunkIndex, c.ContentPreview)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("This deletes all stored chunks. Continue? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return
		}
	}

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	if !components.Pipeline.ClearCollection(context.Background()) {
		fmt.Println("Clear failed.")
		os.Exit(1)
	}
	fmt.Println("Collection cleared.")
}

// mustInitialize loads config, builds the logger, and wires components,
// exiting on any failure.
func mustInitialize(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return cfg, logger, components
}

// Components holds initialized services.
type Components struct {
	Registry storage.Registry
	Embedder embedding.Embedder
	Store    vectorstore.Store
	Parser   extract.Parser
	Pipeline *rag.Pipeline
}

func (c *Components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	registry, err := storage.NewSQLiteRegistry(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document registry: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		_ = registry.Close()
		return nil, err
	}

	store := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		URL:     cfg.Qdrant.URL,
		APIKey:  cfg.Qdrant.APIKey,
		Timeout: cfg.Qdrant.Timeout(),
	})

	generator := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:  os.Getenv(cfg.LLM.APIKeyEnv),
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	pipeline := rag.New(
		store,
		embedder,
		generator,
		cfg.Qdrant.Collection,
		cfg.RAG,
		rag.WithLogger(logger),
		rag.WithRegistry(registry),
	)

	return &Components{
		Registry: registry,
		Embedder: embedder,
		Store:    store,
		Parser:   extract.NewLocalParser(),
		Pipeline: pipeline,
	}, nil
}

// newEmbedder builds the configured embedding provider. The mock provider
// serves offline runs and tests.
func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
	case "openai", "":
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     os.Getenv(cfg.Embedding.APIKeyEnv),
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			CacheSize:  cfg.Embedding.CacheSize,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

func printUsage() {
	fmt.Println(`kotae - Retrieval-augmented answer service

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ingest [flags] <file>     Parse and ingest a document
  kotae query [flags] <question>  Ask a question against the knowledge base
  kotae status [flags]            Show collection and configuration status
  kotae chunks [flags]            List stored chunks
  kotae clear [flags]             Delete all stored chunks
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
  --name string      Document name (default: file base name)

Query Flags:
  --config string    Config file path
  --top-k int        Number of contexts to retrieve (default from config)
  --output string    Output format: text or json (default: text)

Chunks Flags:
  --config string    Config file path
  --limit int        Maximum chunks to list (default: 50)

Clear Flags:
  --config string    Config file path
  --yes              Skip confirmation

Examples:
  kotae server
  kotae ingest handbook.pdf
  kotae query "How do I rotate the API keys?"
  kotae query --output json "deployment steps"
  kotae status
  kotae chunks --limit 10
  kotae clear --yes`)
}
