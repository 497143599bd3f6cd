package extract

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxJunkRatio is the fraction of replacement or control runes above which
// content is treated as binary rather than text.
const maxJunkRatio = 0.3

// extractPlain returns content as text. Stray invalid UTF-8 sequences are
// replaced with the replacement character, but content that is mostly
// unprintable is rejected so binary files do not become garbage documents.
func extractPlain(content []byte) (*Extracted, error) {
	if len(content) == 0 {
		return &Extracted{}, nil
	}
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	junk, total := 0, 0
	for _, r := range text {
		total++
		if r == utf8.RuneError || (unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t') {
			junk++
		}
	}
	if float64(junk) > maxJunkRatio*float64(total) {
		return nil, fmt.Errorf("content is not text (%d of %d runes unprintable)", junk, total)
	}
	return &Extracted{Text: text}, nil
}
