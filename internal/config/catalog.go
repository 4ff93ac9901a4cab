package config

import (
	"os"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/glyph"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Catalog is the static YAML configuration: category styles, glyph size and
// the selectable data sources.
type Catalog struct {
	Categories map[string]CategoryStyle `yaml:"categories,omitempty"`
	Glyph      *GlyphSize               `yaml:"glyph,omitempty"`
	Sources    []SourceEntry            `yaml:"sources"`
	// DefaultSource is loaded first; empty means the first entry of Sources.
	DefaultSource string `yaml:"default_source,omitempty"`
}

// CategoryStyle overrides a category's color and visibility threshold.
// Fields left out keep the built-in value; an explicit threshold of 0 is kept.
type CategoryStyle struct {
	Color     string   `yaml:"color,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// GlyphSize overrides flower dimensions in pixels.
type GlyphSize struct {
	Box          float64 `yaml:"box"`
	CenterRadius float64 `yaml:"center_radius"`
	MinLength    float64 `yaml:"min_length"`
	MaxLength    float64 `yaml:"max_length"`
	MinWidth     float64 `yaml:"min_width"`
	MaxWidth     float64 `yaml:"max_width"`
}

// SourceEntry names one dataset and where to read it from.
type SourceEntry struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Location string `yaml:"location"`
	Hulls    string `yaml:"hulls"`
}

// LoadCatalog reads a catalog file. An empty path yields an empty catalog,
// which means built-in category styles, default glyph size and no sources.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "catalog file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read catalog file",
			goerr.V("path", path))
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, goerr.Wrap(err, "failed to parse catalog YAML",
			goerr.V("path", path))
	}
	if err := c.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid catalog",
			goerr.V("path", path))
	}
	return &c, nil
}

// Validate checks source ids and glyph dimensions.
func (c *Catalog) Validate() error {
	seen := map[string]bool{}
	for i, s := range c.Sources {
		if s.ID == "" {
			return goerr.New("source id is empty", goerr.V("index", i))
		}
		if seen[s.ID] {
			return goerr.New("duplicate source id", goerr.V("id", s.ID))
		}
		seen[s.ID] = true
		if s.Location == "" {
			return goerr.New("source location is empty", goerr.V("id", s.ID))
		}
	}
	if c.DefaultSource != "" && !seen[c.DefaultSource] {
		return goerr.New("default source is not defined", goerr.V("id", c.DefaultSource))
	}
	for name, style := range c.Categories {
		if _, ok := domain.ParseCategory(name); !ok {
			return goerr.New("unknown category", goerr.V("category", name))
		}
		if style.Threshold != nil && *style.Threshold < 0 {
			return goerr.New("negative threshold", goerr.V("category", name), goerr.V("threshold", *style.Threshold))
		}
	}
	if g := c.GlyphSize(); g.MinLength > g.MaxLength || g.MinWidth > g.MaxWidth {
		return goerr.New("glyph minimum exceeds maximum",
			goerr.V("length", [2]float64{g.MinLength, g.MaxLength}),
			goerr.V("width", [2]float64{g.MinWidth, g.MaxWidth}))
	}
	return nil
}

// Styles converts category overrides for domain.NewCatalog. A threshold left
// unset resolves to the category's built-in threshold.
func (c *Catalog) Styles() map[string]domain.Style {
	out := make(map[string]domain.Style, len(c.Categories))
	for name, s := range c.Categories {
		style := domain.Style{Color: s.Color}
		if s.Threshold != nil {
			style.Threshold = *s.Threshold
		} else if cat, ok := domain.ParseCategory(name); ok {
			style.Threshold = domain.BuiltinStyle(cat).Threshold
		}
		out[name] = style
	}
	return out
}

// GlyphSize returns the configured flower size, with unset fields taken from
// glyph.DefaultSize.
func (c *Catalog) GlyphSize() glyph.Size {
	size := glyph.DefaultSize
	g := c.Glyph
	if g == nil {
		return size
	}
	for _, f := range []struct {
		dst *float64
		v   float64
	}{
		{&size.Box, g.Box},
		{&size.CenterRadius, g.CenterRadius},
		{&size.MinLength, g.MinLength},
		{&size.MaxLength, g.MaxLength},
		{&size.MinWidth, g.MinWidth},
		{&size.MaxWidth, g.MaxWidth},
	} {
		if f.v > 0 {
			*f.dst = f.v
		}
	}
	return size
}

// Default returns the id of the source to load first, or "" when there are
// no sources.
func (c *Catalog) Default() string {
	if c.DefaultSource != "" {
		return c.DefaultSource
	}
	if len(c.Sources) > 0 {
		return c.Sources[0].ID
	}
	return ""
}
