package render

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/rosterbot/internal/roster"
)

// FormatStats renders the per-category statistics message.
func FormatStats(report roster.CategoryReport) string {
	lines := []string{
		"📊 *Statistics by category:*",
		"",
		fmt.Sprintf("👥 *Total records:* %d", report.Overall.Total),
		fmt.Sprintf("🟢 *Active (overall):* %d (%s%%)", report.Overall.Active, FormatPercent(report.Overall.Percent)),
		"",
	}
	for _, c := range report.Categories {
		lines = append(lines, fmt.Sprintf("▫️ *%s:* total %d | active %d (%s%%)",
			EscapeMarkdown(c.Category), c.Total, c.Active, FormatPercent(c.Percent)))
	}
	return strings.Join(lines, "\n")
}
