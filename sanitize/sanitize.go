// Package sanitize prepares raw message text for embedding in HTML. Escaping
// always runs before mention highlighting: the mention pattern matches the
// escaped delimiter sequence, so mention-shaped raw markup cannot smuggle
// tags into the output.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

// mentionPattern matches the escaped form of <@123>, <@!123> and <@&123>.
// The role modifier & has already been escaped to &amp; by the time the
// highlighter runs. Only the numeric identifier is captured; the modifier is
// not part of the display.
var mentionPattern = regexp.MustCompile(`&lt;@(?:!|&amp;)?(\d+)&gt;`)

// Escape HTML-escapes the five markup-significant characters and converts
// line breaks into <br> markers. Empty input yields an empty result.
func Escape(text string) string {
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "<br>")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return escaped
}

// HighlightMentions rewrites escaped mention tokens into highlighted spans
// showing @<identifier>. There is no name directory, so the identifier is
// shown verbatim. Input must already be escaped via Escape.
func HighlightMentions(escaped string) string {
	if escaped == "" {
		return ""
	}
	return mentionPattern.ReplaceAllString(escaped, `<span class="mention">@$1</span>`)
}
