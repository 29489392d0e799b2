package chunker

import (
	"regexp"
	"strings"
)

var (
	newlineRuns    = regexp.MustCompile(`\n+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	markupTags     = regexp.MustCompile(`<[^>]+>`)
)

// Clean collapses newline runs, then all whitespace runs, strips
// markup-like tags and trims the result.
func Clean(text string) string {
	text = newlineRuns.ReplaceAllString(text, "\n")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	text = markupTags.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
