package glyph

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"

	"github.com/couchcryptid/crime-flowers/internal/domain"
)

const svgNS = "http://www.w3.org/2000/svg"

// ColorFunc resolves a category to its display color.
type ColorFunc func(domain.Category) string

type svgDoc struct {
	XMLName xml.Name    `xml:"svg"`
	Xmlns   string      `xml:"xmlns,attr"`
	Width   string      `xml:"width,attr"`
	Height  string      `xml:"height,attr"`
	Class   string      `xml:"class,attr,omitempty"`
	Circles []svgCircle `xml:"circle"`
	Lines   []svgLine   `xml:"line"`
}

type svgCircle struct {
	CX    string `xml:"cx,attr"`
	CY    string `xml:"cy,attr"`
	R     string `xml:"r,attr"`
	Class string `xml:"class,attr,omitempty"`
	Fill  string `xml:"fill,attr,omitempty"`
}

type svgLine struct {
	X1          string `xml:"x1,attr"`
	Y1          string `xml:"y1,attr"`
	X2          string `xml:"x2,attr"`
	Y2          string `xml:"y2,attr"`
	Class       string `xml:"class,attr"`
	Stroke      string `xml:"stroke,attr,omitempty"`
	StrokeWidth string `xml:"stroke-width,attr"`
}

// Markup renders the glyph as a standalone SVG element suitable for a map
// marker icon.
func Markup(g Glyph, color ColorFunc) (string, error) {
	doc := svgDoc{
		Xmlns:  svgNS,
		Width:  num(g.Size.Box),
		Height: num(g.Size.Box),
		Class:  "flower",
		Circles: []svgCircle{{
			CX:    num(g.Center.X),
			CY:    num(g.Center.Y),
			R:     num(g.CenterRadius),
			Class: "flower-center",
		}},
	}
	for _, p := range g.Petals {
		line := svgLine{
			X1:          num(p.From.X),
			Y1:          num(p.From.Y),
			X2:          num(p.To.X),
			Y2:          num(p.To.Y),
			Class:       "petal petal-" + p.Category.String(),
			StrokeWidth: num(p.StrokeWidth),
		}
		if color != nil {
			line.Stroke = color(p.Category)
		}
		doc.Lines = append(doc.Lines, line)
	}
	return marshal(doc)
}

// DotMarkup renders a filled circle used for per-category overlay markers.
func DotMarkup(radius float64, color string) (string, error) {
	box := radius * 2
	return marshal(svgDoc{
		Xmlns:  svgNS,
		Width:  num(box),
		Height: num(box),
		Class:  "category-dot",
		Circles: []svgCircle{{
			CX:   num(radius),
			CY:   num(radius),
			R:    num(radius),
			Fill: color,
		}},
	})
}

func marshal(doc svgDoc) (string, error) {
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal glyph svg: %w", err)
	}
	return string(out), nil
}

// num formats a coordinate with at most three decimals. NaN stays "NaN" so a
// degenerate glyph is still well-formed markup.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
