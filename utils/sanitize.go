package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer     = bluemonday.UGCPolicy()
	textSanitizer = bluemonday.StrictPolicy()
)

// Sanitize strips unsafe markup from user supplied post content. The result
// is HTML, so "&" comes back as "&amp;".
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}

// SanitizeText drops every tag and returns plain text with entities decoded.
// Callers rendering it as HTML must escape it.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(textSanitizer.Sanitize(input)))
}
