package roster

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Matcher turns a sheet grid into result records for a query.
type Matcher struct {
	fields FieldMap
	active StatusPredicate
	logger *slog.Logger
}

func NewMatcher(fields FieldMap, active StatusPredicate) *Matcher {
	return &Matcher{
		fields: fields,
		active: active,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for skipped rows.
func (m *Matcher) WithLogger(logger *slog.Logger) *Matcher {
	m.logger = logger
	return m
}

// Match returns the records whose full name, secondary id, national id or
// identifier contains the trimmed, case-folded query. Row 0 is the header.
// Records keep sheet order. A row that fails to process is logged and skipped.
func (m *Matcher) Match(grid [][]string, query string) []Record {
	lower := cases.Lower(language.Und)
	q := lower.String(strings.TrimSpace(query))
	if q == "" || len(grid) < 2 {
		return nil
	}

	var out []Record
	for i, row := range grid[1:] {
		rec, ok, err := m.matchRow(row, q, lower)
		if err != nil {
			m.logger.Warn("skip row", "component", "matcher", "row", i+2, "error", err)
			continue
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

func (m *Matcher) matchRow(row []string, q string, lower cases.Caser) (rec Record, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, ok, err = nil, false, fmt.Errorf("process row: %v", r)
		}
	}()

	basic := m.basic(row)
	if basic.FullName == "" && basic.SecondaryID == "" && basic.NationalID == "" && basic.Identifier == "" {
		return nil, false, nil
	}

	if !strings.Contains(lower.String(basic.FullName), q) &&
		!strings.Contains(lower.String(basic.SecondaryID), q) &&
		!strings.Contains(lower.String(basic.NationalID), q) &&
		!strings.Contains(lower.String(basic.Identifier), q) {
		return nil, false, nil
	}

	return m.build(row, basic), true, nil
}

func (m *Matcher) basic(row []string) BasicRecord {
	f := m.fields
	return BasicRecord{
		Identifier:  Cell(row, f.Identifier),
		Group:       Cell(row, f.Group),
		Track:       Cell(row, f.Track),
		FullName:    Cell(row, f.FullName),
		SecondaryID: Cell(row, f.SecondaryID),
		Status:      Cell(row, f.Status),
		NationalID:  Cell(row, f.NationalID),
	}
}

func (m *Matcher) build(row []string, basic BasicRecord) Record {
	if !m.active.Holds(basic.Status) {
		return basic
	}
	return EnrichedRecord{
		BasicRecord:  basic,
		Role:         Cell(row, m.fields.Role),
		Organization: Cell(row, m.fields.Organization),
		Date:         Cell(row, m.fields.Date),
	}
}
