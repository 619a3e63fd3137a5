// Package sanitize provides HTML-to-text conversion for prompt assembly.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	// blockBreakRegex matches tags that imply a line break in rendered output.
	blockBreakRegex = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/li|/h[1-6]|/tr)\s*>`)
	// htmlTagRegex matches any remaining HTML tag.
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
)

// Text converts an HTML fragment to plain text. Block boundaries become
// newlines, entities are decoded, and blank lines are dropped, so the
// result reads as compact newline-joined prose. Plain text passes through
// unchanged apart from whitespace trimming.
func Text(s string) string {
	result := blockBreakRegex.ReplaceAllString(s, "\n")
	result = htmlTagRegex.ReplaceAllString(result, "")
	result = html.UnescapeString(result)
	// Re-strip after entity decode to catch encoded tags.
	result = htmlTagRegex.ReplaceAllString(result, "")

	lines := strings.Split(result, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
