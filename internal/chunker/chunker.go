// Package chunker splits raw text into overlapping, size-bounded segments
// aligned to sentence boundaries.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minChunkLength filters out trailing fragments too short to be useful
// retrieval material. Kept as a hard constant for reproducible chunk
// boundaries across deployments.
const minChunkLength = 50

// Normalize collapses runs of whitespace into single spaces and trims.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteByte(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// ChunkText splits text into sentence-aligned chunks of at most roughly
// maxSize characters. Each chunk after the first is seeded with a word-aligned
// overlap tail of up to overlap characters from its predecessor, so adjacent
// chunks share context. Chunks shorter than 50 characters are dropped.
// Output order equals source order; the function is pure and deterministic.
func ChunkText(text string, maxSize, overlap int) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	sentences := splitSentences(normalized)

	var chunks []string
	var cur strings.Builder
	for _, sentence := range sentences {
		if cur.Len() > 0 && cur.Len()+len(sentence) > maxSize {
			closed := strings.TrimSpace(cur.String())
			chunks = appendChunk(chunks, closed)
			cur.Reset()
			cur.WriteString(overlapTail(closed, overlap))
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sentence)
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		chunks = appendChunk(chunks, rest)
	}
	return chunks
}

func appendChunk(chunks []string, chunk string) []string {
	if len(chunk) < minChunkLength {
		return chunks
	}
	return append(chunks, chunk)
}

// splitSentences segments normalized text at '.', '!', or '?'. A candidate
// terminator is confirmed only when it ends the text, or the next character is
// whitespace or an uppercase letter. The uppercase rule closes sentences that
// run directly into a capitalized word ("end.Next") while leaving
// abbreviations like "e.g." intact; it intentionally mis-splits names such as
// "Acme.Corp" and must not be changed, or previously ingested chunk
// boundaries stop being reproducible. Unterminated trailing material becomes
// a final sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i < len(runes)-1 {
			next := runes[i+1]
			if !unicode.IsSpace(next) && !unicode.IsUpper(next) {
				continue
			}
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// overlapTail returns the suffix of a closed chunk used to seed the next one.
// It takes the last overlap bytes, snapped forward to a rune boundary, then
// advances past the first space in that window so the tail starts on a whole
// word. Inputs no longer than overlap are returned whole; a window with no
// space is returned raw.
func overlapTail(text string, overlap int) string {
	if overlap <= 0 || text == "" {
		return ""
	}
	if len(text) <= overlap {
		return text
	}
	start := len(text) - overlap
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	tail := text[start:]
	if i := strings.IndexByte(tail, ' '); i >= 0 && i+1 < len(tail) {
		return tail[i+1:]
	}
	return tail
}
