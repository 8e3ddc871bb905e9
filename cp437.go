package zipr

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// TextDecoder decodes entry names and comments that are not flagged as UTF-8.
// ZIP predates Unicode; names written without general purpose flag bit 11 are
// in the creator's legacy code page, conventionally CP437.
type TextDecoder func(b []byte) string

// decodeCP437 is the default TextDecoder.
func decodeCP437(b []byte) string {
	s, err := charmap.CodePage437.NewDecoder().Bytes(b)
	if err != nil {
		// single-byte decoding cannot fail; keep the raw bytes if it ever does.
		return string(b)
	}
	return string(s)
}

// decodeUTF8 decodes b as UTF-8, replacing invalid sequences with U+FFFD.
func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
