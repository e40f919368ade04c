package render

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/rosterbot/internal/roster"
)

const (
	iconActive   = "🟢"
	iconInactive = "🔴"
	unknown      = "Unknown"
	divider      = "────────"
)

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FormatRecord renders one record as a card.
func FormatRecord(rec roster.Record, active roster.StatusPredicate) string {
	b := rec.Basic()
	icon := iconInactive
	if active.Holds(b.Status) {
		icon = iconActive
	}

	lines := []string{
		fmt.Sprintf("👥 Group: *%s*", EscapeMarkdown(orDefault(b.Group, unknown))),
		fmt.Sprintf("📚 Track: *%s*", EscapeMarkdown(orDefault(b.Track, unknown))),
		fmt.Sprintf("👤 *%s*", EscapeMarkdown(orDefault(b.FullName, unknown))),
		fmt.Sprintf("🆔 UID: `%s`", EscapeMarkdown(b.Identifier)),
		fmt.Sprintf("💼 ID: `%s`", EscapeMarkdown(b.SecondaryID)),
		fmt.Sprintf("🔑 National ID: `%s`", EscapeMarkdown(b.NationalID)),
		fmt.Sprintf("%s %s", icon, EscapeMarkdown(b.Status)),
	}

	if e, ok := rec.(roster.EnrichedRecord); ok {
		lines = append(lines,
			"",
			"🏢 *Workplace:*",
			fmt.Sprintf("   • Role: _%s_", EscapeMarkdown(orDefault(e.Role, "-"))),
			fmt.Sprintf("   • Organization: _%s_", EscapeMarkdown(orDefault(e.Organization, "-"))),
			fmt.Sprintf("   • Date: _%s_", EscapeMarkdown(orDefault(e.Date, "-"))),
		)
	}

	return strings.Join(lines, "\n")
}

// FormatPage joins cards in order, each under a numbered divider.
func FormatPage(records []roster.Record, active roster.StatusPredicate) string {
	blocks := make([]string, 0, len(records))
	for i, rec := range records {
		blocks = append(blocks, fmt.Sprintf("%s %d %s\n%s", divider, i+1, divider, FormatRecord(rec, active)))
	}
	return strings.Join(blocks, "\n\n")
}
