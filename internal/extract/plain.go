package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain treats content as UTF-8 text. Byte sequences that do not
// decode are replaced with U+FFFD so downstream chunking always sees valid
// text.
func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	return strings.ToValidUTF8(string(content), string(utf8.RuneError)), nil
}
