package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// collectPaths returns a callback recording ingested paths and a getter.
func collectPaths() (func(string), func() []string) {
	var mu sync.Mutex
	var paths []string
	record := func(p string) {
		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
	}
	get := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
	return record, get
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherIngestsCreatedFile(t *testing.T) {
	dir := t.TempDir()
	record, got := collectPaths()
	w := NewWatcher([]string{dir}, []string{".txt"}, true, record, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return len(got()) >= 1 }) {
		t.Fatal("ingest callback never fired")
	}
	if got()[0] != path {
		t.Errorf("ingested %q, want %q", got()[0], path)
	}
}

func TestWatcherFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	record, got := collectPaths()
	w := NewWatcher([]string{dir}, []string{".md"}, true, record, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dir, "keep.md")
	if err := os.WriteFile(keep, []byte("y"), 0600); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return len(got()) >= 1 }) {
		t.Fatal("ingest callback never fired")
	}
	for _, p := range got() {
		if p != keep {
			t.Errorf("unexpected ingest of %q", p)
		}
	}
}

func TestSyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.txt")
	if err := os.WriteFile(existing, []byte("present before start"), 0600); err != nil {
		t.Fatal(err)
	}

	record, got := collectPaths()
	w := NewWatcher([]string{dir}, []string{".txt"}, true, record, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExistingFiles()
	paths := got()
	if len(paths) != 1 || paths[0] != existing {
		t.Errorf("synced = %v", paths)
	}
}

func TestWatcherCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-yet")
	record, _ := collectPaths()
	w := NewWatcher([]string{root}, nil, true, record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root not created: %v", err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || dirs[0] != root {
		t.Errorf("directories = %v", dirs)
	}
}

func TestMatchExtension(t *testing.T) {
	if !matchExtension("a/b/c.TXT", []string{".txt"}) {
		t.Error("case-insensitive match failed")
	}
	if !matchExtension("a.md", []string{"md"}) {
		t.Error("dotless pattern should match")
	}
	if matchExtension("a.bin", []string{".txt", ".md"}) {
		t.Error("non-matching extension accepted")
	}
	if !matchExtension("anything.xyz", nil) {
		t.Error("empty list should match all")
	}
}
