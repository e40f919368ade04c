package roster

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sheetRow(id, secondary, name, status, national, group, track, role, org, date string) []string {
	row := make([]string, 35)
	row[0] = id
	row[2] = secondary
	row[3] = name
	row[4] = status
	row[5] = national
	row[14] = group
	row[22] = track
	row[29] = role
	row[30] = org
	row[34] = date
	return row
}

func header() []string {
	return []string{"UID", "", "HEMIS", "FIO", "Status", "JSHSHIR"}
}

func TestCell(t *testing.T) {
	row := []string{"  a  ", "", "\tb\n"}
	tests := []struct {
		idx  int
		want string
	}{
		{0, "a"},
		{1, ""},
		{2, "b"},
		{3, ""},
		{100, ""},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := Cell(row, tt.idx); got != tt.want {
			t.Errorf("Cell(row, %d) = %q, want %q", tt.idx, got, tt.want)
		}
	}
	if got := Cell(nil, 0); got != "" {
		t.Errorf("Cell(nil, 0) = %q, want empty", got)
	}
}

func TestStatusPredicate(t *testing.T) {
	p := NewStatusPredicate("Faol")
	tests := []struct {
		status string
		want   bool
	}{
		{"Faol", true},
		{"faol shartnoma", true},
		{"NOFAOL", true},
		{"passive", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.Holds(tt.status); got != tt.want {
			t.Errorf("Holds(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}

	if !NewStatusPredicate("").Holds("anything") {
		t.Error("empty marker should match every status")
	}
}

func TestFieldMap_Validate(t *testing.T) {
	if err := DefaultFieldMap().Validate(); err != nil {
		t.Fatalf("default field map invalid: %v", err)
	}
	f := DefaultFieldMap()
	f.Role = -1
	if err := f.Validate(); err == nil {
		t.Error("expected error for negative column")
	}
}

func TestMatch_EmptyQuery(t *testing.T) {
	grid := [][]string{header(), sheetRow("1", "h1", "Ali Valiyev", "faol", "123", "", "", "", "", "")}
	m := NewMatcher(DefaultFieldMap(), NewStatusPredicate("faol"))
	for _, q := range []string{"", "   ", "\t\n"} {
		if got := m.Match(grid, q); len(got) != 0 {
			t.Errorf("Match(%q) returned %d records, want 0", q, len(got))
		}
	}
}

func TestMatch_TrimAndCaseFold(t *testing.T) {
	grid := [][]string{
		header(),
		sheetRow("u1", "h1", "Ali Valiyev", "passive", "111", "G-1", "Math", "", "", ""),
		sheetRow("u2", "h2", "Vali Aliyev", "passive", "222", "G-2", "Physics", "", "", ""),
		sheetRow("u3", "h3", "Karim Soliyev", "passive", "333", "G-3", "Math", "", "", ""),
	}
	m := NewMatcher(DefaultFieldMap(), NewStatusPredicate("faol"))

	a := m.Match(grid, "  Ali  ")
	b := m.Match(grid, "ali")
	if diff := cmp.Diff(b, a); diff != "" {
		t.Errorf("trimmed query differs (-want +got):\n%s", diff)
	}
	if len(a) != 2 {
		t.Fatalf("len = %d, want 2", len(a))
	}
	if a[0].Basic().FullName != "Ali Valiyev" || a[1].Basic().FullName != "Vali Aliyev" {
		t.Errorf("unexpected order: %q, %q", a[0].Basic().FullName, a[1].Basic().FullName)
	}
}

func TestMatch_Fields(t *testing.T) {
	grid := [][]string{
		header(),
		sheetRow("UID-77", "", "", "", "", "", "", "", "", ""),
		sheetRow("", "HEMIS-5", "", "", "", "", "", "", "", ""),
		sheetRow("", "", "", "", "30101", "", "", "", "", ""),
		sheetRow("", "", "Nodira", "", "", "", "", "", "", ""),
	}
	m := NewMatcher(DefaultFieldMap(), NewStatusPredicate("faol"))

	tests := []struct {
		query string
		want  int
	}{
		{"uid-77", 1},
		{"hemis-5", 1},
		{"0101", 1},
		{"nod", 1},
		{"zzz", 0},
	}
	for _, tt := range tests {
		if got := len(m.Match(grid, tt.query)); got != tt.want {
			t.Errorf("Match(%q) = %d records, want %d", tt.query, got, tt.want)
		}
	}
}

func TestMatch_SkipsBlankRows(t *testing.T) {
	row := sheetRow("", "", "", "match-me", "", "match-me", "match-me", "match-me", "match-me", "match-me")
	grid := [][]string{header(), row, {}, {"", "", "", "", ""}}
	m := NewMatcher(DefaultFieldMap(), NewStatusPredicate(""))

	if got := m.Match(grid, "match"); len(got) != 0 {
		t.Errorf("blank identity row matched: %+v", got)
	}
}

func TestMatch_HeaderSkipped(t *testing.T) {
	grid := [][]string{{"Ali header", "", "", "Ali"}}
	m := NewMatcher(DefaultFieldMap(), NewStatusPredicate("faol"))
	if got := m.Match(grid, "ali"); len(got) != 0 {
		t.Errorf("header row matched")
	}
	if got := m.Match(nil, "ali"); len(got) != 0 {
		t.Errorf("nil grid matched")
	}
}

func TestMatch_ConditionalFields(t *testing.T) {
	grid := [][]string{
		header(),
		sheetRow("1", "h1", "Ali Active", "Faol", "1", "G", "T", "Engineer", "Acme", "2024-01-02"),
		sheetRow("2", "h2", "Ali Passive", "Nofaol emas", "2", "G", "T", "Engineer", "Acme", "2024-01-02"),
		// ragged: workplace columns missing but status active
		{"3", "", "h3", "Ali Short", "FAOL"},
	}
	m := NewMatcher(DefaultFieldMap(), NewStatusPredicate("faol"))
	got := m.Match(grid, "ali")

	want := []Record{
		EnrichedRecord{
			BasicRecord: BasicRecord{Identifier: "1", Group: "G", Track: "T", FullName: "Ali Active", SecondaryID: "h1", Status: "Faol", NationalID: "1"},
			Role:        "Engineer", Organization: "Acme", Date: "2024-01-02",
		},
		EnrichedRecord{
			BasicRecord: BasicRecord{Identifier: "2", Group: "G", Track: "T", FullName: "Ali Passive", SecondaryID: "h2", Status: "Nofaol emas", NationalID: "2"},
			Role:        "Engineer", Organization: "Acme", Date: "2024-01-02",
		},
		EnrichedRecord{
			BasicRecord: BasicRecord{Identifier: "3", FullName: "Ali Short", SecondaryID: "h3", Status: "FAOL"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Match mismatch (-want +got):\n%s", diff)
	}

	strict := NewMatcher(DefaultFieldMap(), NewStatusPredicate("active-contract"))
	for _, r := range strict.Match(grid, "ali") {
		if IsEnriched(r) {
			t.Errorf("record %q enriched without required status", r.Basic().FullName)
		}
	}
}

func TestMatch_EnrichedIffStatusHolds(t *testing.T) {
	active := NewStatusPredicate("faol")
	statuses := []string{"faol", "", "passive", "Faol bo'lgan", "x"}
	grid := [][]string{header()}
	for i, s := range statuses {
		grid = append(grid, sheetRow(fmt.Sprint(i), "", "Name", s, "", "", "", "r", "o", "d"))
	}
	for _, r := range NewMatcher(DefaultFieldMap(), active).Match(grid, "name") {
		if IsEnriched(r) != active.Holds(r.Basic().Status) {
			t.Errorf("status %q: enriched=%v", r.Basic().Status, IsEnriched(r))
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		active, total int
		want          float64
	}{
		{0, 0, 0},
		{3, 10, 30},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{7, 7, 100},
		{1, 32, 3.12},
		{5, 32, 15.62},
		{1, 160, 0.62},
		{3, 8, 37.5},
		{1, 6, 16.67},
	}
	for _, tt := range tests {
		if got := Percent(tt.active, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.active, tt.total, got, tt.want)
		}
	}
}

func TestSummarize_ActiveShare(t *testing.T) {
	grid := [][]string{header()}
	for i := 0; i < 10; i++ {
		status := "passive"
		if i%4 == 0 {
			status = "Faol"
		}
		grid = append(grid, sheetRow(fmt.Sprintf("id-%d", i), "", "Student", status, "", "", "", "", "", ""))
	}
	active := NewStatusPredicate("faol")
	results := NewMatcher(DefaultFieldMap(), active).Match(grid, "student")
	if len(results) != 10 {
		t.Fatalf("len = %d, want 10", len(results))
	}
	got := Summarize(results, active)
	if diff := cmp.Diff(Summary{Total: 10, Active: 3, Percent: 30}, got); diff != "" {
		t.Errorf("Summarize (-want +got):\n%s", diff)
	}

	if got := Summarize(nil, active); got != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", got)
	}
}

func TestSummarizeByCategory(t *testing.T) {
	f := DefaultFieldMap()
	grid := [][]string{
		header(),
		sheetRow("1", "", "a", "faol", "", "", "physics", "", "", ""),
		sheetRow("2", "", "b", "no", "", "", "Math", "", "", ""),
		sheetRow("3", "", "c", "faol", "", "", "math", "", "", ""),
		sheetRow("4", "", "d", "faol", "", "", "", "", "", ""),
		{"5"},
	}
	got := SummarizeByCategory(grid, f.Category, f.Status, NewStatusPredicate("faol"))

	want := CategoryReport{
		Overall: Summary{Total: 5, Active: 3, Percent: 60},
		Categories: []CategorySummary{
			{Category: "Math", Summary: Summary{Total: 1, Active: 0, Percent: 0}},
			{Category: "math", Summary: Summary{Total: 1, Active: 1, Percent: 100}},
			{Category: "physics", Summary: Summary{Total: 1, Active: 1, Percent: 100}},
			{Category: UnknownCategory, Summary: Summary{Total: 2, Active: 1, Percent: 50}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SummarizeByCategory (-want +got):\n%s", diff)
	}

	if got := SummarizeByCategory([][]string{header()}, f.Category, f.Status, NewStatusPredicate("faol")); len(got.Categories) != 0 || got.Overall.Total != 0 {
		t.Errorf("header-only grid = %+v, want empty", got)
	}
}

func TestCountCategories(t *testing.T) {
	grid := [][]string{
		{"header"},
		{"b"}, {"a"}, {"b"}, {""}, {"c"}, {"a"}, {"b"}, {},
	}
	got := CountCategories(grid, 0)
	want := []CategoryCount{{"b", 3}, {"a", 2}, {"c", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CountCategories (-want +got):\n%s", diff)
	}
}
