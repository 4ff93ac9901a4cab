package viz

import (
	"math"
	"testing"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(t *testing.T) State {
	t.Helper()
	return ApplyDataset(State{Visible: map[domain.Category]bool{}}, timeSeriesDataset(), DefaultConfig())
}

func TestApplyDataset(t *testing.T) {
	s := loaded(t)

	assert.True(t, s.Loaded)
	assert.True(t, s.TimeSeries)
	assert.Len(t, s.Day, 3)
	assert.Len(t, s.Night, 2)
	assert.Equal(t, domain.TimeWindow{Start: 1, End: 1}, s.Window)
	assert.Equal(t, 0.0, s.Range.Min)
	assert.Equal(t, 40.0, s.Range.Max, "global range spans both partitions")
	assert.Equal(t, 1.0, s.Scale.DomainMin)
	assert.Equal(t, 3.0, s.Scale.DomainMax)
}

func TestApplyDataset_WithoutTimes(t *testing.T) {
	ds := domain.Dataset{Records: []domain.IncidentRecord{
		{Cluster: 0, Partition: domain.Day, Counts: domain.Counts{domain.Drug: 4}},
		{Cluster: 1, Partition: domain.Unknown, Counts: domain.Counts{domain.Drug: 100}},
	}}
	s := ApplyDataset(State{}, ds, DefaultConfig())

	assert.False(t, s.TimeSeries)
	assert.False(t, s.Active)
	assert.Len(t, s.Day, 1)
	assert.Empty(t, s.Night)
	assert.Equal(t, 4.0, s.Range.Max, "unknown DN rows are excluded")
	assert.Len(t, WindowRecords(s, domain.Day), 1)
}

func TestResetForSource_KeepsVisibility(t *testing.T) {
	s := loaded(t)
	s, _ = ToggleCategory(s, domain.Weapon)

	next := ResetForSource(s, "other", 9)
	assert.Equal(t, "other", next.Source)
	assert.Equal(t, uint64(9), next.Token)
	assert.False(t, next.Loaded)
	assert.False(t, next.Active)
	assert.Empty(t, next.Day)
	assert.Equal(t, []domain.Category{domain.Weapon}, next.VisibleCategories())

	next, _ = ToggleCategory(next, domain.Weapon)
	assert.Equal(t, []domain.Category{domain.Weapon}, s.VisibleCategories(), "reset does not alias the old set")
}

func TestToggleCategory(t *testing.T) {
	s := loaded(t)

	a, on := ToggleCategory(s, domain.Drug)
	require.True(t, on)
	b, on := ToggleCategory(a, domain.Weapon)
	require.True(t, on)
	c, on := ToggleCategory(b, domain.Drug)
	require.False(t, on)

	assert.Empty(t, s.VisibleCategories(), "input state is not mutated")
	assert.Equal(t, []domain.Category{domain.Drug}, a.VisibleCategories())
	assert.Equal(t, []domain.Category{domain.Drug, domain.Weapon}, b.VisibleCategories())
	assert.Equal(t, []domain.Category{domain.Weapon}, c.VisibleCategories())
}

func TestBrushWindow(t *testing.T) {
	s := loaded(t)

	tests := []struct {
		name      string
		selection [2]float64
		inDomain  bool
		want      domain.TimeWindow
	}{
		{name: "domain", selection: [2]float64{1, 2}, inDomain: true, want: domain.TimeWindow{Start: 1, End: 2}},
		{name: "domain reversed", selection: [2]float64{3, 2}, inDomain: true, want: domain.TimeWindow{Start: 2, End: 3}},
		{name: "pixels", selection: [2]float64{0, 400}, want: domain.TimeWindow{Start: 1, End: 2}},
		{name: "pixels full width", selection: [2]float64{800, 0}, want: domain.TimeWindow{Start: 1, End: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BrushWindow(s, tt.selection, tt.inDomain)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Start, got.Start, 1e-9)
			assert.InDelta(t, tt.want.End, got.End, 1e-9)
		})
	}

	_, err := BrushWindow(s, [2]float64{math.NaN(), 1}, true)
	assert.Error(t, err)
}

func TestWindowRecords(t *testing.T) {
	s := ApplyBrush(loaded(t), domain.TimeWindow{Start: 2, End: 3})

	var got []int
	for _, r := range WindowRecords(s, domain.Day) {
		got = append(got, r.Cluster)
	}
	assert.Equal(t, []int{1, 2}, got)

	night := WindowRecords(s, domain.Night)
	require.Len(t, night, 1)
	assert.Equal(t, 3, night[0].Cluster)

	assert.Empty(t, WindowRecords(s, domain.Unknown))
}

func TestCategoryRecords_ThresholdIsExclusive(t *testing.T) {
	s := ApplyBrush(loaded(t), domain.TimeWindow{Start: 1, End: 3})

	got := CategoryRecords(s, domain.Day, domain.Drug, 25)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Cluster)

	nan := s.Clone()
	nan.Day = []domain.IncidentRecord{rec(5, domain.Day, 1, math.NaN(), 0)}
	assert.Empty(t, CategoryRecords(nan, domain.Day, domain.Drug, 0))
}

func TestGlyphRange(t *testing.T) {
	s := loaded(t)
	r := s.Day[1]

	local := GlyphRange(s, r, DefaultConfig())
	assert.Equal(t, 5.0, local.Max)

	cfg := DefaultConfig()
	cfg.Mode = Global
	assert.Equal(t, s.Range, GlyphRange(s, r, cfg))
}

func TestParseConfigEnums(t *testing.T) {
	m, err := ParseNormalizationMode("global")
	require.NoError(t, err)
	assert.Equal(t, Global, m)
	_, err = ParseNormalizationMode("both")
	assert.Error(t, err)

	ts, err := ParseTileStyle("night")
	require.NoError(t, err)
	assert.Contains(t, ts.TileURL(), "dark_all")
	assert.Contains(t, DayTiles.TileURL(), "light_all")
	_, err = ParseTileStyle("dusk")
	assert.Error(t, err)
}
