package render

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/rosterbot/internal/bus"
	"github.com/stellarlinkco/rosterbot/internal/roster"
)

const DefaultPageSize = 7

// Pager splits a result set into fixed-size pages.
type Pager struct {
	PageSize int
	Active   roster.StatusPredicate
}

// Page is one rendered window of a result set.
type Page struct {
	Text    string
	Items   []roster.Record
	Current int
	Total   int
	Nav     bus.Nav
}

func (p Pager) size() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// TotalPages is ceil(n/size), never less than 1.
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage forces page into [1, total].
func ClampPage(page, total int) int {
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Render builds the requested page. Out-of-range pages are clamped.
func (p Pager) Render(records []roster.Record, requested int) Page {
	size := p.size()
	total := TotalPages(len(records), size)
	current := ClampPage(requested, total)

	start := (current - 1) * size
	end := min(start+size, len(records))
	items := records[start:end]

	var nav bus.Nav
	if total > 1 {
		if current > 1 {
			nav.Prev = current - 1
		}
		if current < total {
			nav.Next = current + 1
		}
	}

	return Page{
		Text:    p.header(records, current, total) + FormatPage(items, p.Active),
		Items:   items,
		Current: current,
		Total:   total,
		Nav:     nav,
	}
}

func (p Pager) header(records []roster.Record, current, total int) string {
	s := roster.Summarize(records, p.Active)
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *Records found:* %d\n", s.Total)
	fmt.Fprintf(&sb, "🟢 *Active:* %d (%s%%)\n", s.Active, FormatPercent(s.Percent))
	fmt.Fprintf(&sb, "📄 *Page:* %d/%d\n\n", current, total)
	return sb.String()
}
