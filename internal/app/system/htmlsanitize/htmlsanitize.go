// Package htmlsanitize strips markup from strings that arrive from upstream
// services before they are shown to operators.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag. bluemonday policies are safe for concurrent use
// once built.
var strict = bluemonday.StrictPolicy()

// PlainText removes all HTML from s and returns the readable text.
// Entities escaped by the policy are decoded again so "Tom & Jerry" survives.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return s
	}
	return html.UnescapeString(strict.Sanitize(s))
}

// IsPlainText reports whether s contains no tag-like content.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
