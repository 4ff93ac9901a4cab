// Package source loads pivot CSV datasets and their optional hull files from
// local paths or HTTP URLs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/crime-flowers/internal/domain"
)

// ErrUnknownSource is returned for ids not in the catalog.
var ErrUnknownSource = errors.New("unknown data source")

// Source is one selectable dataset.
type Source struct {
	ID       string
	Label    string
	Location string
	Hulls    string
}

// Fetcher resolves source ids and parses what they point at.
// It implements viz.Fetcher.
type Fetcher struct {
	sources map[string]Source
	order   []string
	http    *HTTPLoader
	logger  *slog.Logger
}

// NewFetcher creates a fetcher over a fixed source list. Later entries with a
// duplicate id replace earlier ones.
func NewFetcher(sources []Source, timeout time.Duration, logger *slog.Logger) *Fetcher {
	f := &Fetcher{
		sources: make(map[string]Source, len(sources)),
		http:    NewHTTPLoader(timeout),
		logger:  logger,
	}
	for _, s := range sources {
		if _, dup := f.sources[s.ID]; !dup {
			f.order = append(f.order, s.ID)
		}
		f.sources[s.ID] = s
	}
	return f
}

// Sources lists the catalog in declaration order.
func (f *Fetcher) Sources() []Source {
	out := make([]Source, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.sources[id])
	}
	return out
}

// Fetch loads and parses a source. A missing or unreadable hull file is
// logged and the dataset is returned without outlines.
func (f *Fetcher) Fetch(ctx context.Context, id string) (domain.Dataset, error) {
	src, ok := f.sources[id]
	if !ok {
		return domain.Dataset{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}

	rc, err := f.open(ctx, src.Location)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open source %s: %w", id, err)
	}
	defer rc.Close()

	records, stats, err := domain.ParseRecords(rc)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("parse source %s: %w", id, err)
	}
	ds := domain.Dataset{Source: id, Records: records, Stats: stats}

	if src.Hulls != "" {
		hulls, err := f.loadHulls(ctx, src.Hulls)
		if err != nil {
			f.logger.Warn("hull outlines unavailable", "source", id, "location", src.Hulls, "error", err)
		} else {
			ds.Hulls = hulls
		}
	}

	f.logger.Debug("source fetched",
		"source", id,
		"rows", stats.Rows,
		"malformed_fields", stats.MalformedFields,
		"hull_vertices", len(ds.Hulls),
	)
	return ds, nil
}

func (f *Fetcher) loadHulls(ctx context.Context, location string) ([]domain.HullVertex, error) {
	rc, err := f.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return domain.ParseHulls(rc)
}

func (f *Fetcher) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if isURL(location) {
		return f.http.Open(ctx, location)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(location)
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
