// Package chart renders the per-partition time series as SVG with go-chart.
// Points inside the active brush window are drawn larger.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned by Render before any buckets have been drawn.
var ErrNoData = errors.New("chart has no data")

const (
	dotWidth           = 1.5
	emphasizedDotWidth = 4.0
)

// ColorFunc resolves a category to a hex color.
type ColorFunc func(domain.Category) string

// SVGChart keeps the last drawn series and brush window and renders them on
// demand.
type SVGChart struct {
	title  string
	width  int
	height int
	color  ColorFunc

	mu        sync.Mutex
	buckets   []domain.AggregatedBucket
	cats      []domain.Category
	globalMax float64
	window    domain.TimeWindow
	hasWindow bool
}

// New creates a chart of the given pixel size.
func New(title string, width, height int, color ColorFunc) *SVGChart {
	return &SVGChart{title: title, width: width, height: height, color: color}
}

// Draw replaces the series. Buckets must already be sorted by time.
func (c *SVGChart) Draw(buckets []domain.AggregatedBucket, cats []domain.Category, globalMax float64) error {
	for i := 1; i < len(buckets); i++ {
		if buckets[i].Time < buckets[i-1].Time {
			return fmt.Errorf("buckets not sorted by time at index %d", i)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = append([]domain.AggregatedBucket(nil), buckets...)
	c.cats = append([]domain.Category(nil), cats...)
	c.globalMax = globalMax
	c.hasWindow = false
	return nil
}

// Emphasize marks points whose time falls inside w.
func (c *SVGChart) Emphasize(w domain.TimeWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = w
	c.hasWindow = true
}

// Emphasized returns the bucket times currently inside the brush window.
func (c *SVGChart) Emphasized() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int
	for _, b := range c.buckets {
		if c.emphasized(b.Time) {
			out = append(out, b.Time)
		}
	}
	return out
}

func (c *SVGChart) emphasized(t int) bool {
	return c.hasWindow && c.window.Contains(float64(t))
}

// Width is the pixel width the brush scale should map onto.
func (c *SVGChart) Width() int { return c.width }

// Render writes the chart as SVG.
func (c *SVGChart) Render(w io.Writer) error {
	c.mu.Lock()
	graph, err := c.build()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if err := graph.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", c.title, err)
	}
	return nil
}

func (c *SVGChart) build() (gochart.Chart, error) {
	if len(c.buckets) == 0 || len(c.cats) == 0 {
		return gochart.Chart{}, ErrNoData
	}

	xs := make([]float64, len(c.buckets))
	for i, b := range c.buckets {
		xs[i] = float64(b.Time)
	}
	xMin, xMax := xs[0], xs[len(xs)-1]
	if xMin == xMax {
		xMin, xMax = xMin-1, xMax+1
	}
	yMax := c.globalMax
	if yMax <= 0 {
		yMax = 1
	}

	window, hasWindow := c.window, c.hasWindow
	widthAt := func(_, _ gochart.Range, _ int, x, _ float64) float64 {
		if hasWindow && window.Contains(x) {
			return emphasizedDotWidth
		}
		return dotWidth
	}

	series := make([]gochart.Series, 0, len(c.cats))
	for _, cat := range c.cats {
		ys := make([]float64, len(c.buckets))
		for i, b := range c.buckets {
			ys[i] = b.Counts.Get(cat)
		}
		col := c.seriesColor(cat)
		series = append(series, gochart.ContinuousSeries{
			Name:    cat.String(),
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor:      col,
				StrokeWidth:      1.5,
				DotColor:         col,
				DotWidthProvider: widthAt,
			},
		})
	}

	graph := gochart.Chart{
		Title:  c.title,
		Width:  c.width,
		Height: c.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 30, Left: 16, Right: 12, Bottom: 12},
		},
		XAxis:  gochart.XAxis{Name: "time", Range: &gochart.ContinuousRange{Min: xMin, Max: xMax}},
		YAxis:  gochart.YAxis{Name: "incidents", Range: &gochart.ContinuousRange{Min: 0, Max: yMax}},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	return graph, nil
}

func (c *SVGChart) seriesColor(cat domain.Category) drawing.Color {
	if c.color == nil {
		return gochart.GetDefaultColor(int(cat))
	}
	return drawing.ColorFromHex(strings.TrimPrefix(c.color(cat), "#"))
}
