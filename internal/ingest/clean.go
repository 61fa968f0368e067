package ingest

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	trailingSpace   = regexp.MustCompile(`(?m)[ \t]+$`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes scraped or extracted text before chunking: line endings become \n,
// runs of spaces and tabs collapse to one space, three or more newlines collapse to a
// paragraph break, and the result is trimmed.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = trailingSpace.ReplaceAllString(text, "")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
