package extract

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlScriptStyle = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlComment     = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlTag         = regexp.MustCompile(`<[^>]+>`)
	htmlWhitespace  = regexp.MustCompile(`\s+`)
)

// extractHTML strips markup from HTML bytes, dropping script and style
// contents entirely, and unescapes entities.
func extractHTML(content []byte) (string, error) {
	text, err := extractPlain(content)
	if err != nil {
		return "", err
	}
	text = htmlScriptStyle.ReplaceAllString(text, " ")
	text = htmlComment.ReplaceAllString(text, " ")
	text = htmlTag.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(htmlWhitespace.ReplaceAllString(text, " ")), nil
}
