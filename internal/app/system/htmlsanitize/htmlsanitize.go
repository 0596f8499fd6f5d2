// Package htmlsanitize cleans user-supplied text before storage.
// It uses bluemonday to strip potentially dangerous HTML.
//
// Free-text fields (comments, suggestions, descriptions) are stored as
// plain text: all markup is removed. Expert bios may carry basic
// formatting, so they keep the safe subset.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	richPolicy   *bluemonday.Policy
	policyOnce   sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// UGC base: bold, italics, lists, links, blockquotes.
		richPolicy = bluemonday.UGCPolicy()
		richPolicy.AllowElements("u", "s", "sub", "sup", "mark")
	})
	return strictPolicy, richPolicy
}

// PlainText strips all HTML from s and returns the remaining text with
// entities decoded and surrounding whitespace trimmed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	strict, _ := policies()
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// RichText cleans s while preserving safe formatting like bold, italic,
// lists, and links. Scripts, event handlers, and javascript: URLs are
// removed.
func RichText(s string) string {
	if s == "" {
		return ""
	}
	_, rich := policies()
	return rich.Sanitize(s)
}
