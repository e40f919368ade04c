package roster

import (
	"sort"
	"strconv"
)

// UnknownCategory labels rows with an empty category cell.
const UnknownCategory = "Unknown"

type Summary struct {
	Total   int     `json:"total"`
	Active  int     `json:"active"`
	Percent float64 `json:"percent"`
}

func newSummary(total, active int) Summary {
	return Summary{Total: total, Active: active, Percent: Percent(active, total)}
}

// Percent is active/total*100 rounded to two decimals, or 0 for an empty total.
// Rounding works on the exact binary value with ties to even, so 1 of 32 is 3.12.
func Percent(active, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(active) / float64(total) * 100
	v, _ := strconv.ParseFloat(strconv.FormatFloat(p, 'f', 2, 64), 64)
	return v
}

// Summarize counts the records and those whose status satisfies active.
func Summarize(records []Record, active StatusPredicate) Summary {
	n := 0
	for _, r := range records {
		if active.Holds(r.Basic().Status) {
			n++
		}
	}
	return newSummary(len(records), n)
}

type CategorySummary struct {
	Category string `json:"category"`
	Summary
}

type CategoryReport struct {
	Overall    Summary           `json:"overall"`
	Categories []CategorySummary `json:"categories"`
}

// SummarizeByCategory groups every data row by the raw value of categoryCol.
// Categories are ordered case-insensitively.
func SummarizeByCategory(grid [][]string, categoryCol, statusCol int, active StatusPredicate) CategoryReport {
	if len(grid) < 2 {
		return CategoryReport{}
	}

	totals := make(map[string]int)
	actives := make(map[string]int)
	overallActive := 0
	for _, row := range grid[1:] {
		key := Cell(row, categoryCol)
		if key == "" {
			key = UnknownCategory
		}
		totals[key]++
		if active.Holds(Cell(row, statusCol)) {
			actives[key]++
			overallActive++
		}
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := fold(keys[i]), fold(keys[j])
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})

	report := CategoryReport{
		Overall:    newSummary(len(grid)-1, overallActive),
		Categories: make([]CategorySummary, 0, len(keys)),
	}
	for _, k := range keys {
		report.Categories = append(report.Categories, CategorySummary{
			Category: k,
			Summary:  newSummary(totals[k], actives[k]),
		})
	}
	return report
}

type CategoryCount struct {
	Label string
	Count int
}

// CountCategories counts non-empty values of col, most frequent first.
// Ties keep the order in which values first appear.
func CountCategories(grid [][]string, col int) []CategoryCount {
	if len(grid) < 2 {
		return nil
	}
	index := make(map[string]int)
	var counts []CategoryCount
	for _, row := range grid[1:] {
		v := Cell(row, col)
		if v == "" {
			continue
		}
		if i, ok := index[v]; ok {
			counts[i].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, CategoryCount{Label: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
