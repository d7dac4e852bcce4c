package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

func testRAGConfig() config.RAGConfig {
	return config.RAGConfig{
		MaxChunkSize:       500,
		ChunkOverlap:       100,
		TopK:               5,
		ScoreThreshold:     0.3,
		MaxAttempts:        5,
		BackoffBaseSeconds: 4,
	}
}

// scriptGenerator plays back a scripted error per call; calls beyond the
// script succeed with a fixed answer.
type scriptGenerator struct {
	calls      int
	errs       []error
	answer     string
	lastSystem string
	lastUser   string
}

func (g *scriptGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.lastSystem = systemPrompt
	g.lastUser = userPrompt
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	return g.answer, nil
}

func (g *scriptGenerator) ModelName() string { return "script" }
func (g *scriptGenerator) Close() error     { return nil }

// recordedSleep captures retry delays without waiting.
func recordedSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func newTestPipeline(t *testing.T, gen llm.Generator, opts ...Option) *Pipeline {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	embedder := embedding.NewMockEmbedder(8)
	return New(store, embedder, gen, "test-docs", testRAGConfig(), opts...)
}

func TestSynthesizeEmptyContextsSkipsGenerator(t *testing.T) {
	gen := &scriptGenerator{answer: "should not be called"}
	p := newTestPipeline(t, gen)

	answer := p.Synthesize(context.Background(), "anything?", nil)
	if answer != noContextMessage {
		t.Errorf("answer = %q", answer)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestSynthesizePromptFormat(t *testing.T) {
	gen := &scriptGenerator{answer: "ok"}
	p := newTestPipeline(t, gen)

	contexts := []models.RetrievedContext{
		{Content: "first passage", SourceDocument: "a.txt", Score: 0.9},
		{Content: "second passage", SourceDocument: "b.txt", Score: 0.8},
	}
	if got := p.Synthesize(context.Background(), "what is this?", contexts); got != "ok" {
		t.Fatalf("answer = %q", got)
	}

	if !strings.Contains(gen.lastSystem, "only the provided context") {
		t.Errorf("system prompt missing grounding instruction: %q", gen.lastSystem)
	}
	wantOrder := []string{"[Source 1]: first passage", "[Source 2]: second passage", "what is this?"}
	pos := -1
	for _, want := range wantOrder {
		i := strings.Index(gen.lastUser, want)
		if i < 0 {
			t.Fatalf("user prompt missing %q:\n%s", want, gen.lastUser)
		}
		if i < pos {
			t.Errorf("%q appears out of order", want)
		}
		pos = i
	}
	if !strings.Contains(gen.lastUser, "first passage\n\n[Source 2]") {
		t.Errorf("source blocks not separated by a blank line:\n%s", gen.lastUser)
	}
}

func TestSynthesizeRateLimitExhaustsWithSchedule(t *testing.T) {
	rl := fmt.Errorf("wrapped: %w", llm.ErrRateLimited)
	gen := &scriptGenerator{errs: []error{rl, rl, rl, rl, rl}}
	var delays []time.Duration
	p := newTestPipeline(t, gen, WithSleep(recordedSleep(&delays)))

	contexts := []models.RetrievedContext{{Content: "ctx"}}
	answer := p.Synthesize(context.Background(), "q", contexts)

	if answer != rateLimitMessage {
		t.Errorf("answer = %q", answer)
	}
	if gen.calls != 5 {
		t.Errorf("attempts = %d, want 5", gen.calls)
	}
	want := []time.Duration{4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v", delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestSynthesizeSuccessOnThirdAttempt(t *testing.T) {
	gen := &scriptGenerator{
		errs:   []error{llm.ErrRateLimited, llm.ErrRateLimited},
		answer: "recovered",
	}
	var delays []time.Duration
	p := newTestPipeline(t, gen, WithSleep(recordedSleep(&delays)))

	answer := p.Synthesize(context.Background(), "q", []models.RetrievedContext{{Content: "ctx"}})
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}
	if gen.calls != 3 {
		t.Errorf("attempts = %d, want 3", gen.calls)
	}
	if len(delays) != 2 || delays[0] != 4*time.Second || delays[1] != 8*time.Second {
		t.Errorf("delays = %v", delays)
	}
}

func TestSynthesizeNonRateLimitErrorNotRetried(t *testing.T) {
	gen := &scriptGenerator{errs: []error{errors.New("model exploded")}}
	var delays []time.Duration
	p := newTestPipeline(t, gen, WithSleep(recordedSleep(&delays)))

	answer := p.Synthesize(context.Background(), "q", []models.RetrievedContext{{Content: "ctx"}})
	if answer != generationErrorMessage {
		t.Errorf("answer = %q", answer)
	}
	if gen.calls != 1 {
		t.Errorf("attempts = %d, want 1", gen.calls)
	}
	if len(delays) != 0 {
		t.Errorf("unexpected sleeps: %v", delays)
	}
}

func TestSynthesizeCancellationAbortsRetries(t *testing.T) {
	gen := &scriptGenerator{errs: []error{llm.ErrRateLimited, llm.ErrRateLimited}}
	p := newTestPipeline(t, gen, WithSleep(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}))

	answer := p.Synthesize(context.Background(), "q", []models.RetrievedContext{{Content: "ctx"}})
	if answer != rateLimitMessage {
		t.Errorf("answer = %q", answer)
	}
	if gen.calls != 1 {
		t.Errorf("attempts = %d, want 1 before cancelled sleep", gen.calls)
	}
}

func TestBackoffDelay(t *testing.T) {
	for i, want := range []time.Duration{4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second} {
		if got := backoffDelay(i, 4); got != want {
			t.Errorf("backoffDelay(%d, 4) = %v, want %v", i, got, want)
		}
	}
}

func TestIngestEmptyContent(t *testing.T) {
	p := newTestPipeline(t, &scriptGenerator{})
	for _, content := range []string{"", "   ", "\n\t "} {
		res := p.Ingest(context.Background(), content, "empty.txt")
		if res.Success {
			t.Errorf("ingest(%q) succeeded", content)
		}
		if res.ChunksCreated != 0 {
			t.Errorf("ingest(%q) chunks = %d", content, res.ChunksCreated)
		}
		if res.Message == "" {
			t.Errorf("ingest(%q) missing explanatory message", content)
		}
	}
}

// longDocument builds a multi-sentence document of at least n characters.
func longDocument(n int) string {
	var b strings.Builder
	for i := 1; b.Len() < n; i++ {
		fmt.Fprintf(&b, "Section %d explains how the retrieval pipeline stores embedded chunks for search. ", i)
	}
	return b.String()
}

func TestIngestAndQueryEndToEnd(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	embedder := embedding.NewMockEmbedder(8)
	gen := &scriptGenerator{answer: "grounded answer"}
	p := New(store, embedder, gen, "e2e-docs", testRAGConfig())
	ctx := context.Background()

	doc := longDocument(1200)
	res := p.Ingest(ctx, doc, "handbook.txt")
	if !res.Success {
		t.Fatalf("ingest failed: %s", res.Message)
	}
	if res.ChunksCreated < 2 {
		t.Fatalf("chunks = %d, want >= 2", res.ChunksCreated)
	}
	if got := p.DocumentCount(ctx); got != int64(res.ChunksCreated) {
		t.Errorf("point count = %d, want %d", got, res.ChunksCreated)
	}

	// Query with one stored chunk's exact text: the deterministic embedder
	// gives it similarity 1.0, comfortably above the threshold.
	recs, err := store.Scroll(ctx, "e2e-docs", 1)
	if err != nil || len(recs) != 1 {
		t.Fatalf("scroll: %v (%d records)", err, len(recs))
	}
	question, _ := recs[0].Payload["content"].(string)
	if question == "" {
		t.Fatal("stored record has no content payload")
	}
	result := p.Query(ctx, question, 5)
	if result.Answer != "grounded answer" {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Sources) == 0 {
		t.Fatal("no sources returned")
	}
	if result.Sources[0].SourceDocument != "handbook.txt" {
		t.Errorf("source = %q", result.Sources[0].SourceDocument)
	}
	for _, src := range result.Sources {
		if src.Score < 0.3 {
			t.Errorf("source below threshold: %f", src.Score)
		}
	}
	if result.ProcessingTimeMs < 0 {
		t.Errorf("processing time = %f", result.ProcessingTimeMs)
	}
}

func TestIngestSameNameKeepsOneRegistryRow(t *testing.T) {
	reg, err := storage.NewSQLiteRegistry(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	p := newTestPipeline(t, &scriptGenerator{answer: "ok"}, WithRegistry(reg))
	ctx := context.Background()

	doc := longDocument(1400)
	for i := 0; i < 2; i++ {
		res := p.Ingest(ctx, doc, "handbook.txt")
		if !res.Success {
			t.Fatalf("ingest %d failed: %s", i, res.Message)
		}
	}

	count, err := reg.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("registry rows after re-ingesting the same name = %d, want 1", count)
	}
	list, err := reg.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "handbook.txt" {
		t.Fatalf("documents = %+v", list)
	}
	if list[0].Chunks == 0 {
		t.Error("surviving row lost its chunk count")
	}
}

// fixedEmbedder returns a preset vector for every text.
type fixedEmbedder struct {
	vector []float32
}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector, nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int { return len(e.vector) }
func (e *fixedEmbedder) Close() error    { return nil }

func TestRetrieveAppliesThresholdAndDefaults(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()
	if err := store.CreateCollection(ctx, "docs", 2); err != nil {
		t.Fatal(err)
	}
	records := []vectorstore.Record{
		{
			ID:     uuid.NewString(),
			Vector: []float32{1, 0},
			// No source_document: the read must degrade to "Unknown".
			Payload: map[string]any{"content": "aligned"},
		},
		{
			ID:      uuid.NewString(),
			Vector:  []float32{-1, 0},
			Payload: map[string]any{"content": "opposed", "source_document": "b.txt"},
		},
	}
	if err := store.Upsert(ctx, "docs", records); err != nil {
		t.Fatal(err)
	}

	p := New(store, &fixedEmbedder{vector: []float32{1, 0}}, &scriptGenerator{}, "docs", testRAGConfig())
	contexts, err := p.Retrieve(ctx, "question", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(contexts) != 1 {
		t.Fatalf("contexts = %d, want 1 (opposed vector scores -1, below 0.3)", len(contexts))
	}
	if contexts[0].Content != "aligned" {
		t.Errorf("content = %q", contexts[0].Content)
	}
	if contexts[0].SourceDocument != "Unknown" {
		t.Errorf("source = %q, want Unknown", contexts[0].SourceDocument)
	}
	if contexts[0].Score < 0.99 {
		t.Errorf("score = %f", contexts[0].Score)
	}
}

func TestQuerySearchFailureYieldsFixedAnswer(t *testing.T) {
	// No collection exists and the embedder works, so Search fails.
	store := vectorstore.NewMemoryStore()
	p := New(store, &fixedEmbedder{vector: []float32{1, 0}}, &scriptGenerator{answer: "x"}, "missing", testRAGConfig())

	result := p.Query(context.Background(), "question", 5)
	if result.Answer != searchFailedMessage {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("sources = %v", result.Sources)
	}
}

// deleteCountingStore counts Delete calls on top of a real store.
type deleteCountingStore struct {
	vectorstore.Store
	deleteCalls int
}

func (s *deleteCountingStore) Delete(ctx context.Context, name string, ids []string) error {
	s.deleteCalls++
	return s.Store.Delete(ctx, name, ids)
}

func TestDeleteChunksValidatesIDs(t *testing.T) {
	inner := vectorstore.NewMemoryStore()
	store := &deleteCountingStore{Store: inner}
	embedder := embedding.NewMockEmbedder(4)
	p := New(store, embedder, &scriptGenerator{}, "docs", testRAGConfig())
	ctx := context.Background()

	if !p.EnsureCollection(ctx) {
		t.Fatal("ensure collection failed")
	}

	if got := p.DeleteChunks(ctx, nil); got != 0 {
		t.Errorf("DeleteChunks(nil) = %d", got)
	}
	if got := p.DeleteChunks(ctx, []string{"not-a-uuid", "also bad"}); got != 0 {
		t.Errorf("DeleteChunks(invalid) = %d", got)
	}
	if store.deleteCalls != 0 {
		t.Errorf("store contacted %d times for empty/invalid input", store.deleteCalls)
	}

	id := uuid.NewString()
	if got := p.DeleteChunks(ctx, []string{id, "bogus"}); got != 1 {
		t.Errorf("DeleteChunks(mixed) = %d, want 1", got)
	}
	if store.deleteCalls != 1 {
		t.Errorf("delete calls = %d, want 1", store.deleteCalls)
	}
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	p := New(store, embedding.NewMockEmbedder(4), &scriptGenerator{}, "docs", testRAGConfig())
	ctx := context.Background()

	if !p.EnsureCollection(ctx) || !p.EnsureCollection(ctx) {
		t.Fatal("ensure collection failed")
	}
	names, err := store.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "docs" {
		t.Errorf("collections = %v", names)
	}
}

func TestClearCollectionRecreatesEmpty(t *testing.T) {
	p := newTestPipeline(t, &scriptGenerator{answer: "a"})
	ctx := context.Background()

	res := p.Ingest(ctx, longDocument(1200), "doc.txt")
	if !res.Success {
		t.Fatalf("ingest failed: %s", res.Message)
	}
	if p.DocumentCount(ctx) == 0 {
		t.Fatal("expected points before clear")
	}

	if !p.ClearCollection(ctx) {
		t.Fatal("clear failed")
	}
	if got := p.DocumentCount(ctx); got != 0 {
		t.Errorf("points after clear = %d", got)
	}
	// The collection itself survives with the same configuration.
	if res := p.Ingest(ctx, longDocument(1200), "doc2.txt"); !res.Success {
		t.Errorf("ingest after clear failed: %s", res.Message)
	}
}

func TestListChunksTruncatesPreview(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()
	if err := store.CreateCollection(ctx, "docs", 2); err != nil {
		t.Fatal(err)
	}
	long := strings.Repeat("x", 200)
	err := store.Upsert(ctx, "docs", []vectorstore.Record{{
		ID:     uuid.NewString(),
		Vector: []float32{1, 0},
		Payload: map[string]any{
			"content":         long,
			"source_document": "big.txt",
			"chunk_index":     float64(3),
		},
	}})
	if err != nil {
		t.Fatal(err)
	}

	p := New(store, &fixedEmbedder{vector: []float32{1, 0}}, &scriptGenerator{}, "docs", testRAGConfig())
	infos := p.ListChunks(ctx, 10)
	if len(infos) != 1 {
		t.Fatalf("infos = %d", len(infos))
	}
	if got := infos[0].ContentPreview; got != strings.Repeat("x", 150)+"..." {
		t.Errorf("preview = %q (len %d)", got, len(got))
	}
	if infos[0].ChunkIndex != 3 {
		t.Errorf("chunk index = %d", infos[0].ChunkIndex)
	}
	if infos[0].SourceDocument != "big.txt" {
		t.Errorf("source = %q", infos[0].SourceDocument)
	}

	// Listing a missing collection degrades to an empty result.
	missing := New(store, &fixedEmbedder{vector: []float32{1, 0}}, &scriptGenerator{}, "nope", testRAGConfig())
	if infos := missing.ListChunks(ctx, 10); len(infos) != 0 {
		t.Errorf("expected empty list, got %v", infos)
	}
}
