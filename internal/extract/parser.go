// Package extract provides text extraction from various document formats.
package extract

import (
	"path/filepath"
	"strings"
)

// ParseResult reports the outcome of parsing a document. A failed parse sets
// Success false and Err; it is not a Go error because callers treat parse
// failures as data, not control flow.
type ParseResult struct {
	Success bool
	Text    string
	Err     string
}

// Parser turns raw document bytes into plain text.
type Parser interface {
	Parse(content []byte, filename string) ParseResult
	IsSupported(filename string) bool
}

// LocalParser implements Parser with in-process extraction. No external
// service is involved.
type LocalParser struct{}

// NewLocalParser returns a parser handling plain text, HTML, PDF, Office
// Open XML, and OpenDocument formats.
func NewLocalParser() *LocalParser {
	return &LocalParser{}
}

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
	".xlsx": true,
	".pptx": true,
	".odt":  true,
	".odp":  true,
	".ods":  true,
}

// IsSupported reports whether the file's extension is a known format.
func (p *LocalParser) IsSupported(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Parse extracts plain text from content based on the filename's extension.
// Unknown extensions are treated as plain text.
func (p *LocalParser) Parse(content []byte, filename string) ParseResult {
	text, err := extractByExtension(content, strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return ParseResult{Err: err.Error()}
	}
	return ParseResult{Success: true, Text: text}
}

func extractByExtension(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odt", ".odp", ".ods":
		return extractOpenDocument(content)
	case ".html", ".htm":
		return extractHTML(content)
	default:
		return extractPlain(content)
	}
}
