package viz

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/glyph"
	"github.com/couchcryptid/crime-flowers/internal/scale"
	"github.com/golang/geo/s2"
)

// NormalizationMode selects how petal geometry is scaled.
type NormalizationMode string

const (
	// Local scales each glyph against its own min/max.
	Local NormalizationMode = "local"
	// Global scales every glyph against the dataset-wide min/max.
	Global NormalizationMode = "global"
)

// ParseNormalizationMode validates a mode string.
func ParseNormalizationMode(s string) (NormalizationMode, error) {
	switch NormalizationMode(s) {
	case Local, Global:
		return NormalizationMode(s), nil
	}
	return "", fmt.Errorf("unknown normalization mode %q", s)
}

// TileStyle selects the basemap look.
type TileStyle string

const (
	DayTiles   TileStyle = "day"
	NightTiles TileStyle = "night"
)

// ParseTileStyle validates a tile style string.
func ParseTileStyle(s string) (TileStyle, error) {
	switch TileStyle(s) {
	case DayTiles, NightTiles:
		return TileStyle(s), nil
	}
	return "", fmt.Errorf("unknown tile style %q", s)
}

// TileURL is the CARTO basemap template for the style.
func (t TileStyle) TileURL() string {
	if t == NightTiles {
		return "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png"
	}
	return "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png"
}

// Default initial view over Chicago.
var (
	DefaultCenter = s2.LatLngFromDegrees(41.77324, -87.66513)
	DefaultZoom   = 11.0
)

// Config is the pipeline configuration chosen once at startup.
type Config struct {
	Mode       NormalizationMode
	Glyph      glyph.Size
	TileStyle  TileStyle
	Categories []domain.Category
	// ChartWidth is the width of the chart's plot area. Pixel brush
	// selections are measured from the left edge of that area, so
	// coordinates read off a rendered SVG must have its padding and axis
	// gutter removed first.
	ChartWidth float64
	DotRadius  float64
}

// DefaultConfig uses local normalization and the standard flower size.
func DefaultConfig() Config {
	return Config{
		Mode:       Local,
		Glyph:      glyph.DefaultSize,
		TileStyle:  DayTiles,
		Categories: domain.AllCategories(),
		ChartWidth: 800,
		DotRadius:  4,
	}
}

// State is everything the views are derived from. Transition functions take
// a State and return the next one; the Controller is the only owner.
type State struct {
	Source     string
	Token      uint64
	Loaded     bool
	TimeSeries bool

	Day   []domain.IncidentRecord
	Night []domain.IncidentRecord
	Hulls []domain.HullVertex

	// Range is the dataset-wide range, used in Global mode.
	Range scale.Range
	Scale scale.TimeScale

	// Window is meaningful only when Active is set.
	Window domain.TimeWindow
	Active bool

	Visible map[domain.Category]bool
}

// Clone returns a copy that shares record slices (records are immutable)
// but not the visibility set.
func (s State) Clone() State {
	s.Visible = maps.Clone(s.Visible)
	return s
}

// VisibleCategories lists shown categories in column order.
func (s State) VisibleCategories() []domain.Category {
	var out []domain.Category
	for cat, on := range s.Visible {
		if on {
			out = append(out, cat)
		}
	}
	slices.Sort(out)
	return out
}

// Records returns the full record set of a partition.
func (s State) Records(p domain.Partition) []domain.IncidentRecord {
	switch p {
	case domain.Day:
		return s.Day
	case domain.Night:
		return s.Night
	}
	return nil
}

// ResetForSource starts a new load cycle: records, window and scale are
// discarded, category visibility is kept.
func ResetForSource(s State, source string, token uint64) State {
	return State{
		Source:  source,
		Token:   token,
		Visible: maps.Clone(s.Visible),
	}
}

// ApplyDataset installs a freshly loaded dataset. For time-series data the
// window starts on the earliest bucket alone.
func ApplyDataset(s State, ds domain.Dataset, cfg Config) State {
	next := s.Clone()
	next.Loaded = true
	next.Day, next.Night = domain.SplitByPartition(ds.Records)
	next.Hulls = ds.Hulls
	next.Range = scale.GlobalRange(slices.Concat(next.Day, next.Night), cfg.Categories)

	times := domain.DistinctTimes(slices.Concat(next.Day, next.Night))
	next.TimeSeries = ds.Stats.TimeSeries || len(times) > 0
	next.Active = false
	next.Window = domain.TimeWindow{}
	next.Scale = scale.TimeScale{}
	if len(times) > 0 {
		first, last := float64(times[0]), float64(times[len(times)-1])
		next.Scale = scale.NewTimeScale(first, last, 0, cfg.ChartWidth)
		next.Window = domain.TimeWindow{Start: first, End: first}
		next.Active = true
	}
	return next
}

// BrushWindow converts a brush selection into a window. Pixel selections are
// plot-area x offsets inverted through the time scale over [0, ChartWidth];
// domain selections are used as-is.
func BrushWindow(s State, selection [2]float64, inDomain bool) (domain.TimeWindow, error) {
	a, b := selection[0], selection[1]
	if math.IsNaN(a) || math.IsNaN(b) {
		return domain.TimeWindow{}, fmt.Errorf("brush selection contains NaN: %v", selection)
	}
	if !inDomain {
		a, b = s.Scale.Invert(a), s.Scale.Invert(b)
	}
	return domain.NewTimeWindow(a, b), nil
}

// ApplyBrush replaces the active window.
func ApplyBrush(s State, w domain.TimeWindow) State {
	next := s.Clone()
	next.Window = w
	next.Active = true
	return next
}

// ToggleCategory flips a category's visibility and reports the new value.
func ToggleCategory(s State, cat domain.Category) (State, bool) {
	next := s.Clone()
	if next.Visible == nil {
		next.Visible = map[domain.Category]bool{}
	}
	on := !next.Visible[cat]
	if on {
		next.Visible[cat] = true
	} else {
		delete(next.Visible, cat)
	}
	return next, on
}

// WindowRecords returns the partition's records inside the active window.
// Datasets without a time column are not windowed.
func WindowRecords(s State, p domain.Partition) []domain.IncidentRecord {
	records := s.Records(p)
	if !s.TimeSeries {
		return records
	}
	if !s.Active {
		return nil
	}
	var out []domain.IncidentRecord
	for _, rec := range records {
		if rec.HasTime && s.Window.Contains(float64(rec.Time)) {
			out = append(out, rec)
		}
	}
	return out
}

// CategoryRecords returns windowed records whose count for cat exceeds
// threshold.
func CategoryRecords(s State, p domain.Partition, cat domain.Category, threshold float64) []domain.IncidentRecord {
	var out []domain.IncidentRecord
	for _, rec := range WindowRecords(s, p) {
		if rec.Counts.Get(cat) > threshold {
			out = append(out, rec)
		}
	}
	return out
}

// GlyphRange picks the normalization range for one record.
func GlyphRange(s State, rec domain.IncidentRecord, cfg Config) scale.Range {
	if cfg.Mode == Global {
		return s.Range
	}
	return scale.RecordRange(rec, cfg.Categories)
}
