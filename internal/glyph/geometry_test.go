package glyph

import (
	"encoding/xml"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_LayoutAndScaling(t *testing.T) {
	counts := domain.Counts{0, 10, 20, 30, 40, 50, 60, 70, 80, 100}
	cats := domain.AllCategories()

	g := Build(counts, cats, scale.Range{Min: 0, Max: 100}, DefaultSize)

	require.Len(t, g.Petals, domain.NumCategories)
	assert.Equal(t, Point{X: 25, Y: 25}, g.Center)
	assert.Equal(t, 5.0, g.CenterRadius)

	first := g.Petals[0]
	assert.Equal(t, domain.Drug, first.Category)
	assert.Equal(t, 0.0, first.Angle)
	assert.Equal(t, 10.0, first.Length)
	assert.Equal(t, 1.0, first.StrokeWidth)
	assert.InDelta(t, 35.0, first.To.X, 1e-9)
	assert.InDelta(t, 25.0, first.To.Y, 1e-9)

	last := g.Petals[9]
	assert.Equal(t, domain.Weapon, last.Category)
	assert.InDelta(t, 9*2*math.Pi/10, last.Angle, 1e-12)
	assert.Equal(t, 20.0, last.Length)
	assert.Equal(t, 5.0, last.StrokeWidth)

	quarter := g.Petals[5]
	assert.InDelta(t, math.Pi, quarter.Angle, 1e-12)
	assert.Equal(t, 15.0, quarter.Length)
	assert.InDelta(t, 10.0, quarter.To.X, 1e-9)
}

func TestBuild_DegenerateRangeUsesMidpoint(t *testing.T) {
	var counts domain.Counts
	for i := range counts {
		counts[i] = 7
	}

	g := BuildLocal(domain.IncidentRecord{Counts: counts}, domain.AllCategories(), DefaultSize)

	for _, p := range g.Petals {
		assert.Equal(t, 15.0, p.Length, "petal %s", p.Category)
		assert.Equal(t, 3.0, p.StrokeWidth, "petal %s", p.Category)
		assert.False(t, math.IsNaN(p.To.X))
	}
}

func TestBuild_LengthsStayWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	cats := domain.AllCategories()
	for i := 0; i < 200; i++ {
		var counts domain.Counts
		for c := range counts {
			counts[c] = float64(rng.IntN(1000))
		}
		r := scale.Range{Min: float64(rng.IntN(300)), Max: float64(300 + rng.IntN(300))}

		g := Build(counts, cats, r, DefaultSize)
		for _, p := range g.Petals {
			assert.GreaterOrEqual(t, p.Length, DefaultSize.MinLength)
			assert.LessOrEqual(t, p.Length, DefaultSize.MaxLength)
			assert.GreaterOrEqual(t, p.StrokeWidth, DefaultSize.MinWidth)
			assert.LessOrEqual(t, p.StrokeWidth, DefaultSize.MaxWidth)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	counts := domain.Counts{5, 1, 9, 3, 3, 0, 2, 8, 4, 6}
	r := scale.Range{Min: 0, Max: 9}
	assert.Equal(t,
		Build(counts, domain.AllCategories(), r, DefaultSize),
		Build(counts, domain.AllCategories(), r, DefaultSize))
}

func TestBuild_NaNDegradesWithoutPanic(t *testing.T) {
	counts := domain.Counts{domain.Drug: math.NaN(), domain.Weapon: 4}

	g := BuildLocal(domain.IncidentRecord{Counts: counts}, domain.AllCategories(), DefaultSize)

	require.Len(t, g.Petals, domain.NumCategories)
	assert.True(t, math.IsNaN(g.Petals[0].Length))
	assert.True(t, math.IsNaN(g.Petals[9].Length), "local range is NaN so every petal degrades")
}

func TestBuild_NoCategories(t *testing.T) {
	g := Build(domain.Counts{}, nil, scale.Range{}, DefaultSize)
	assert.Empty(t, g.Petals)
}

func TestMarkup(t *testing.T) {
	g := Build(domain.Counts{0, 0, 0, 0, 0, 0, 0, 0, 0, 10}, domain.AllCategories(), scale.Range{Min: 0, Max: 10}, DefaultSize)
	colors := func(c domain.Category) string { return "#" + strings.Repeat(string(rune('0'+int(c))), 6) }

	out, err := Markup(g, colors)
	require.NoError(t, err)

	var doc svgDoc
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "50", doc.Width)
	require.Len(t, doc.Circles, 1)
	assert.Equal(t, "flower-center", doc.Circles[0].Class)
	require.Len(t, doc.Lines, domain.NumCategories)
	assert.Equal(t, "petal petal-drug", doc.Lines[0].Class)
	assert.Equal(t, "35", doc.Lines[0].X2)
	assert.Equal(t, "1", doc.Lines[0].StrokeWidth)
	assert.Equal(t, "#999999", doc.Lines[9].Stroke)
	assert.Equal(t, "5", doc.Lines[9].StrokeWidth)
	assert.True(t, strings.HasPrefix(out, "<svg xmlns=\"http://www.w3.org/2000/svg\""))
}

func TestDotMarkup(t *testing.T) {
	out, err := DotMarkup(4, "#d62728")
	require.NoError(t, err)
	assert.Contains(t, out, `fill="#d62728"`)
	assert.Contains(t, out, `r="4"`)
	assert.Contains(t, out, `width="8"`)
}

func TestNum(t *testing.T) {
	assert.Equal(t, "25", num(25))
	assert.Equal(t, "33.09", num(33.090169943749))
	assert.Equal(t, "NaN", num(math.NaN()))
}
