package diff

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SplitWords splits text into a word list on whitespace, dropping empty
// tokens and preserving original case and punctuation. Punctuation
// stripping is deferred to comparison time so that display output and
// annotations show the words as written.
func SplitWords(text string) []string {
	return strings.Fields(norm.NFC.String(text))
}

// normalizeKey produces the comparison key for a token: lowercase with a
// maximal run of non-word characters stripped from each end. Internal
// punctuation (the apostrophe in a contraction) is preserved.
func normalizeKey(word string) string {
	return stripEdges(strings.ToLower(word))
}

// stripDisplay removes edge punctuation for storage and display while
// keeping the original case. If stripping would leave nothing (the token
// is all punctuation) the original token is returned instead.
func stripDisplay(word string) string {
	stripped := stripEdges(word)
	if stripped == "" {
		return word
	}
	return stripped
}

func stripEdges(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
