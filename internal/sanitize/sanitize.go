package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Filename removes characters that are not allowed in file and folder names
func Filename(title string) string {
	// Remove illegal chars
	title = illegalChars.ReplaceAllString(title, "")
	title = whitespace.ReplaceAllString(title, " ")

	// Trim spaces & dots
	return strings.Trim(title, " .")
}

// Text strips all markup from a scraped fragment and collapses whitespace.
func Text(s string) string {
	s = bluemonday.StrictPolicy().Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
