package feed

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var asciiOnly = runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
}))

// asciiFold drops every non-ASCII rune from s.
func asciiFold(s string) string {
	out, _, err := transform.String(asciiOnly, s)
	if err != nil {
		return s
	}
	return out
}

// stripZeroWidth removes zero-width space characters feeds like to sneak
// into titles.
func stripZeroWidth(s string) string {
	return strings.ReplaceAll(s, "\u200B", "")
}
