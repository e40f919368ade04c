// Package render formats roster records and statistics as Telegram Markdown.
package render

import (
	"strconv"
	"strings"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
)

// EscapeMarkdown escapes backslash, asterisk, underscore and backtick.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatPercent prints p with up to two decimals and at least one.
func FormatPercent(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
