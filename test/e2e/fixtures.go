// Package e2e provides end-to-end tests; this file builds minimal files
// for the supported document formats.
package e2e

import (
	"archive/zip"
	"bytes"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions is the list of file extensions exercised by the
// file-based end-to-end test. PDF is not generated here; there is no
// minimal hand-written PDF with extractable text, and PDF extraction is
// covered by the extract package tests.
var SupportedFileExtensions = []string{
	".txt", ".md", ".rst", ".html",
	".docx", ".xlsx", ".pptx", ".odt", ".ods",
}

// MinimalFile returns the bytes of a minimal file of the given extension
// whose extracted text equals the given single-spaced content.
func MinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".docx":
		return minimalDocx(text), nil
	case ".pptx":
		return minimalPptx(text), nil
	case ".odt", ".ods":
		return minimalOpenDocument(text), nil
	case ".xlsx":
		return minimalXlsx(text)
	case ".html":
		return []byte("<html><body><p>" + text + "</p></body></html>"), nil
	default:
		return []byte(text), nil
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalPptx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("ppt/slides/slide1.xml")
	_, _ = fw.Write([]byte(`<p:sld xmlns:p="a" xmlns:a="b"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalOpenDocument(text string) []byte {
	contentXML := `<office:document><office:body><office:text><text:p>` + text + `</text:p></office:text></office:body></office:document>`
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("content.xml")
	_, _ = fw.Write([]byte(contentXML))
	_ = w.Close()
	return buf.Bytes()
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
