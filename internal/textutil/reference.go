package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// lineNumberPattern matches copybook line numbering such as "3." or "12".
var lineNumberPattern = regexp.MustCompile(`^\d+[.\s]*$`)

// CleanReferenceText strips exercise scaffolding from a pasted reference
// passage. Blank lines, bare line numbers, and any line containing
// Chinese text are dropped; the remaining lines are rejoined with single
// newlines. Windows line endings are normalized first.
func CleanReferenceText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if lineNumberPattern.MatchString(trimmed) {
			continue
		}
		if isInstructionLine(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// isInstructionLine reports whether a line contains any Han character.
// Copybook pages carry Chinese prompts and translations alongside the
// English passage; a line with even one such character is not part of
// the dictation.
func isInstructionLine(line string) bool {
	return strings.ContainsFunc(line, func(r rune) bool {
		return unicode.Is(unicode.Han, r)
	})
}
