package chart

import (
	"bytes"
	"testing"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBuckets() []domain.AggregatedBucket {
	return []domain.AggregatedBucket{
		{Time: 0, Counts: domain.Counts{domain.Drug: 4, domain.Weapon: 1}},
		{Time: 1, Counts: domain.Counts{domain.Drug: 7, domain.Weapon: 3}},
		{Time: 2, Counts: domain.Counts{domain.Drug: 2, domain.Weapon: 9}},
	}
}

func TestSVGChart_RenderBeforeDraw(t *testing.T) {
	c := New("day", 600, 200, nil)
	err := c.Render(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrNoData)
}

func TestSVGChart_DrawRejectsUnsortedBuckets(t *testing.T) {
	c := New("day", 600, 200, nil)
	buckets := sampleBuckets()
	buckets[0], buckets[2] = buckets[2], buckets[0]

	err := c.Draw(buckets, domain.AllCategories(), 9)
	require.Error(t, err)
}

func TestSVGChart_Emphasize(t *testing.T) {
	c := New("night", 600, 200, nil)
	require.NoError(t, c.Draw(sampleBuckets(), domain.AllCategories(), 9))
	assert.Empty(t, c.Emphasized())

	c.Emphasize(domain.TimeWindow{Start: 0.5, End: 2})
	assert.Equal(t, []int{1, 2}, c.Emphasized())

	c.Emphasize(domain.TimeWindow{Start: 0, End: 0})
	assert.Equal(t, []int{0}, c.Emphasized())

	require.NoError(t, c.Draw(sampleBuckets(), domain.AllCategories(), 9))
	assert.Empty(t, c.Emphasized(), "redraw clears the window")
}

func TestSVGChart_RenderSVG(t *testing.T) {
	colors := func(cat domain.Category) string {
		if cat == domain.Drug {
			return "#1f77b4"
		}
		return "#17becf"
	}
	c := New("day", 600, 240, colors)
	cats := []domain.Category{domain.Drug, domain.Weapon}
	require.NoError(t, c.Draw(sampleBuckets(), cats, domain.GlobalMax(sampleBuckets(), cats)))
	c.Emphasize(domain.TimeWindow{Start: 1, End: 1})

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))

	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "drug")
	assert.Contains(t, out, "weapon")
}

func TestSVGChart_SingleBucket(t *testing.T) {
	c := New("day", 400, 200, nil)
	require.NoError(t, c.Draw(sampleBuckets()[:1], []domain.Category{domain.Drug}, 0))

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "<svg")
}
