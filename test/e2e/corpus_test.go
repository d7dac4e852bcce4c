package e2e

import "testing"

// maxSingleChunk keeps corpus documents inside one chunk at the default
// chunk size, so query cases can match exact stored content.
const maxSingleChunk = 500

func TestBuildCorpus(t *testing.T) {
	corpus := BuildCorpus()
	if len(corpus.Documents) < 30 {
		t.Fatalf("corpus has %d documents, want at least 30", len(corpus.Documents))
	}
	if len(corpus.Cases) != len(corpus.Documents) {
		t.Errorf("cases = %d, documents = %d", len(corpus.Cases), len(corpus.Documents))
	}

	slugs := make(map[string]bool)
	contents := make(map[string]bool)
	for _, d := range corpus.Documents {
		if slugs[d.Slug] {
			t.Errorf("duplicate slug %q", d.Slug)
		}
		slugs[d.Slug] = true
		if contents[d.Content] {
			t.Errorf("duplicate content for slug %q", d.Slug)
		}
		contents[d.Content] = true
		if len(d.Content) < 50 {
			t.Errorf("document %q content too short to survive chunk filtering: %d chars", d.Slug, len(d.Content))
		}
		if len(d.Content) > maxSingleChunk {
			t.Errorf("document %q content too long for a single chunk: %d chars", d.Slug, len(d.Content))
		}
	}

	for _, c := range corpus.Cases {
		if !slugs[c.ExpectedSlug] {
			t.Errorf("case %q expects unknown slug %q", c.Description, c.ExpectedSlug)
		}
		if c.Question == "" {
			t.Errorf("case %q has empty question", c.Description)
		}
	}
}
