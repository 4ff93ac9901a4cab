// Package glyph builds flower glyphs: a center circle with one petal per
// category whose length and stroke width encode the category count.
//
// Geometry is a pure function of the values, the normalization range and the
// size constants. Turning it into drawable markup is a separate step
// ([Markup]) so the geometry can be tested without a renderer.
package glyph

import (
	"math"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/scale"
)

// Size holds the pixel constants of a glyph.
type Size struct {
	Box          float64 `json:"box" yaml:"box"`
	CenterRadius float64 `json:"center_radius" yaml:"center_radius"`
	MinLength    float64 `json:"min_length" yaml:"min_length"`
	MaxLength    float64 `json:"max_length" yaml:"max_length"`
	MinWidth     float64 `json:"min_width" yaml:"min_width"`
	MaxWidth     float64 `json:"max_width" yaml:"max_width"`
}

// DefaultSize matches the 50px flower icon.
var DefaultSize = Size{
	Box:          50,
	CenterRadius: 5,
	MinLength:    10,
	MaxLength:    20,
	MinWidth:     1,
	MaxWidth:     5,
}

// Point is a position in glyph pixel space, origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Petal is one line segment from the glyph center.
type Petal struct {
	Category    domain.Category `json:"category"`
	Value       float64         `json:"value"`
	Angle       float64         `json:"angle"` // radians, clockwise from +x in screen space
	From        Point           `json:"from"`
	To          Point           `json:"to"`
	Length      float64         `json:"length"`
	StrokeWidth float64         `json:"stroke_width"`
}

// Glyph is the full geometry description of one flower.
type Glyph struct {
	Size         Size    `json:"size"`
	Center       Point   `json:"center"`
	CenterRadius float64 `json:"center_radius"`
	Petals       []Petal `json:"petals"`
}

// Build lays out one petal per category, evenly spaced starting at angle 0,
// with length and width scaled against r.
func Build(counts domain.Counts, cats []domain.Category, r scale.Range, size Size) Glyph {
	c := Point{X: size.Box / 2, Y: size.Box / 2}
	g := Glyph{
		Size:         size,
		Center:       c,
		CenterRadius: size.CenterRadius,
		Petals:       make([]Petal, 0, len(cats)),
	}
	if len(cats) == 0 {
		return g
	}

	step := 2 * math.Pi / float64(len(cats))
	for i, cat := range cats {
		v := counts.Get(cat)
		angle := float64(i) * step
		length := scale.Linear(v, r, size.MinLength, size.MaxLength)
		g.Petals = append(g.Petals, Petal{
			Category: cat,
			Value:    v,
			Angle:    angle,
			From:     c,
			To: Point{
				X: c.X + math.Cos(angle)*length,
				Y: c.Y + math.Sin(angle)*length,
			},
			Length:      length,
			StrokeWidth: scale.Linear(v, r, size.MinWidth, size.MaxWidth),
		})
	}
	return g
}

// BuildLocal builds a glyph scaled against the record's own min/max.
func BuildLocal(rec domain.IncidentRecord, cats []domain.Category, size Size) Glyph {
	return Build(rec.Counts, cats, scale.RecordRange(rec, cats), size)
}
