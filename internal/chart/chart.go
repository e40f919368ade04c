// Package chart draws the category distribution as a PNG bar chart.
package chart

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/stellarlinkco/rosterbot/internal/roster"
	gochart "github.com/wcharczuk/go-chart/v2"
)

var ErrNoData = errors.New("no data to chart")

const (
	DefaultTitle     = "Distribution by category"
	DefaultHeight    = 600
	defaultMinWidth  = 800
	barWidth         = 40
	barSpacing       = 24
	sidePadding      = 160
	defaultLabelCols = 14
)

type Renderer struct {
	Title      string
	Height     int
	LabelWidth int // max label width in terminal columns
	MinWidth   int
}

func NewRenderer() *Renderer {
	return &Renderer{
		Title:      DefaultTitle,
		Height:     DefaultHeight,
		LabelWidth: defaultLabelCols,
		MinWidth:   defaultMinWidth,
	}
}

// Width grows with the number of bars so labels do not collide.
func (r *Renderer) Width(bars int) int {
	return max(r.MinWidth, sidePadding+bars*(barWidth+barSpacing))
}

// Render returns the PNG bytes of a bar chart, one bar per category in order.
func (r *Renderer) Render(counts []roster.CategoryCount) ([]byte, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}

	bars := make([]gochart.Value, len(counts))
	peak := 0
	for i, c := range counts {
		bars[i] = gochart.Value{
			Label: runewidth.Truncate(c.Label, r.LabelWidth, "…"),
			Value: float64(c.Count),
		}
		peak = max(peak, c.Count)
	}

	graph := gochart.BarChart{
		Title:      r.Title,
		Background: gochart.Style{Padding: gochart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
		Width:      r.Width(len(bars)),
		Height:     r.Height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(peak) * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}
