// Package sheet fetches the roster grid from its backing store.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/rosterbot/internal/config"
	"golang.org/x/sync/singleflight"
)

// Source returns the whole grid on every call. Row 0 is the header.
type Source interface {
	FetchGrid(ctx context.Context) ([][]string, error)
}

var ErrUnknownSource = errors.New("unknown source type")

// New builds the source selected by cfg.Type and wraps it in Deduped.
func New(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	var src Source
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", config.SourceSheets:
		gs, err := NewGoogleSheets(ctx, cfg)
		if err != nil {
			return nil, err
		}
		src = gs
	case config.SourceCSV:
		if cfg.Path == "" {
			return nil, fmt.Errorf("csv source: path is required")
		}
		src = &CSVFile{Path: cfg.Path}
	case config.SourceXLSX:
		if cfg.Path == "" {
			return nil, fmt.Errorf("xlsx source: path is required")
		}
		src = &XLSXFile{Path: cfg.Path, Sheet: cfg.Worksheet}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Type)
	}
	return NewDeduped(src), nil
}

// Deduped lets concurrent callers share one in-flight fetch. Nothing is kept
// once the fetch returns.
type Deduped struct {
	src   Source
	group singleflight.Group
}

func NewDeduped(src Source) *Deduped {
	return &Deduped{src: src}
}

func (d *Deduped) FetchGrid(ctx context.Context) ([][]string, error) {
	ch := d.group.DoChan("grid", func() (any, error) {
		return d.src.FetchGrid(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([][]string), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
