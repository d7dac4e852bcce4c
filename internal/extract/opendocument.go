package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// odfContentPath is the main content file inside OpenDocument packages
// (.odt, .odp, .ods).
const odfContentPath = "content.xml"

// odfTextTags match OpenDocument text elements with optional attributes.
// Separate patterns keep opening and closing tags paired.
var odfTextTags = []*regexp.Regexp{
	regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`),
	regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`),
	regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`),
}

// extractOpenDocument extracts text from OpenDocument bytes. All ODF
// variants are a ZIP containing content.xml; text lives in text:p,
// text:span, and text:h elements regardless of document type.
func extractOpenDocument(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: not a zip: %w", err)
	}
	contentXML, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: %w", err)
	}

	s := string(contentXML)
	var b strings.Builder
	for _, tag := range odfTextTags {
		for _, p := range tag.FindAllStringSubmatch(s, -1) {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(p[1]))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// readZipFile returns the contents of the named file inside the archive.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
