package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/crime-flowers/internal/adapter/source"
	"github.com/couchcryptid/crime-flowers/internal/chart"
	"github.com/couchcryptid/crime-flowers/internal/config"
	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/mapview"
	"github.com/couchcryptid/crime-flowers/internal/observability"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	"github.com/m-mizutani/goerr/v2"
)

type app struct {
	catalogPath string

	cfg     *config.Config
	catalog *config.Catalog
	logger  *slog.Logger
	metrics *observability.Metrics
}

// session is one running controller with its views.
type session struct {
	ctrl       *viz.Controller
	day        *mapview.Layer
	night      *mapview.Layer
	dayChart   *chart.SVGChart
	nightChart *chart.SVGChart
}

func (a *app) vizConfig() (viz.Config, error) {
	mode, err := viz.ParseNormalizationMode(a.cfg.NormalizationMode)
	if err != nil {
		return viz.Config{}, err
	}
	tiles, err := viz.ParseTileStyle(a.cfg.TileStyle)
	if err != nil {
		return viz.Config{}, err
	}
	cfg := viz.DefaultConfig()
	cfg.Mode = mode
	cfg.TileStyle = tiles
	cfg.Glyph = a.catalog.GlyphSize()
	cfg.ChartWidth = float64(a.cfg.ChartWidth)
	return cfg, nil
}

func (a *app) newFetcher() *source.Fetcher {
	sources := make([]source.Source, 0, len(a.catalog.Sources))
	for _, s := range a.catalog.Sources {
		sources = append(sources, source.Source{ID: s.ID, Label: s.Label, Location: s.Location, Hulls: s.Hulls})
	}
	return source.NewFetcher(sources, a.cfg.FetchTimeout, a.logger)
}

// newSession wires a controller to fresh views. sink may be nil. The caller
// runs the controller.
func (a *app) newSession(sink viz.FrameSink) (*session, error) {
	vcfg, err := a.vizConfig()
	if err != nil {
		return nil, err
	}
	fetcher := a.newFetcher()
	cached, err := source.NewCachedFetcher(fetcher, a.cfg.FetchCacheSize, a.metrics)
	if err != nil {
		return nil, err
	}

	styles := domain.NewCatalog(a.catalog.Styles(), a.logger)
	s := &session{
		day:        mapview.NewLayer("day", vcfg.TileStyle.TileURL(), viz.DefaultCenter, viz.DefaultZoom),
		night:      mapview.NewLayer("night", vcfg.TileStyle.TileURL(), viz.DefaultCenter, viz.DefaultZoom),
		dayChart:   chart.New("day", a.cfg.ChartWidth, a.cfg.ChartHeight, styles.Color),
		nightChart: chart.New("night", a.cfg.ChartWidth, a.cfg.ChartHeight, styles.Color),
	}
	deps := viz.Deps{
		Fetcher:    cached,
		Day:        s.day,
		Night:      s.night,
		DayChart:   s.dayChart,
		NightChart: s.nightChart,
		Catalog:    styles,
		Sink:       sink,
		Metrics:    a.metrics,
		Logger:     a.logger,
	}
	s.ctrl = viz.New(vcfg, deps)
	return s, nil
}

// start runs the controller loop until ctx ends. The returned channel
// receives Run's result.
func (s *session) start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.ctrl.Run(ctx) }()
	return done
}

// export writes both map views as GeoJSON and both charts as SVG into dir.
// A chart with nothing drawn is skipped.
func (s *session) export(dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "create output directory", goerr.V("dir", dir))
	}
	for _, l := range []*mapview.Layer{s.day, s.night} {
		path := filepath.Join(dir, l.Name()+".geojson")
		if err := writeFile(path, l.WriteGeoJSON); err != nil {
			return err
		}
		logger.Info("view written", "view", l.Name(), "path", path, "markers", len(l.Markers()))
	}
	for _, v := range []struct {
		name  string
		chart *chart.SVGChart
	}{{"day", s.dayChart}, {"night", s.nightChart}} {
		name, c := v.name, v.chart
		path := filepath.Join(dir, name+".svg")
		err := writeFile(path, c.Render)
		if errors.Is(err, chart.ErrNoData) {
			logger.Debug("chart skipped", "chart", name)
			continue
		}
		if err != nil {
			return err
		}
		logger.Info("chart written", "chart", name, "path", path)
	}
	return nil
}

// writeFile renders into a temp file and renames it over path.
func writeFile(path string, render func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return goerr.Wrap(err, "create temp file", goerr.V("path", path))
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "close temp file", goerr.V("path", path))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerr.Wrap(err, "rename output", goerr.V("path", path))
	}
	return nil
}

// parseCategories splits a comma-separated category list.
func parseCategories(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if _, ok := domain.ParseCategory(name); !ok {
			return nil, goerr.New("unknown category", goerr.V("category", name))
		}
		out = append(out, name)
	}
	return out, nil
}
