// Package scale computes normalization ranges and the linear maps that turn
// category counts into glyph geometry.
package scale

import (
	"math"

	"github.com/couchcryptid/crime-flowers/internal/domain"
)

// Range is a closed [Min, Max] interval over input values.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Degenerate reports whether the range has zero width.
func (r Range) Degenerate() bool {
	return r.Min == r.Max
}

// Contains reports whether other lies within r.
func (r Range) Contains(other Range) bool {
	return r.Min <= other.Min && r.Max >= other.Max
}

// LocalRange is the min/max over one record's values. Any NaN makes both
// bounds NaN so the glyph degrades visibly instead of silently.
func LocalRange(values []float64) Range {
	if len(values) == 0 {
		return Range{}
	}
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) {
			return Range{Min: math.NaN(), Max: math.NaN()}
		}
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	return r
}

// RecordRange is LocalRange over a record's counts for the given categories.
func RecordRange(rec domain.IncidentRecord, cats []domain.Category) Range {
	return LocalRange(rec.Counts.Values(cats))
}

// GlobalRange is the min/max over every (record, category) pair, skipping
// NaN. No usable values yields the zero range.
func GlobalRange(records []domain.IncidentRecord, cats []domain.Category) Range {
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	seen := false
	for _, rec := range records {
		for _, cat := range cats {
			v := rec.Counts.Get(cat)
			if math.IsNaN(v) {
				continue
			}
			seen = true
			r.Min = math.Min(r.Min, v)
			r.Max = math.Max(r.Max, v)
		}
	}
	if !seen {
		return Range{}
	}
	return r
}

// Linear maps v from r onto [lo, hi], clamped. A degenerate range maps every
// value to the midpoint of [lo, hi]. NaN input yields NaN.
func Linear(v float64, r Range, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	if r.Degenerate() {
		return (lo + hi) / 2
	}
	out := lo + (v-r.Min)*(hi-lo)/(r.Max-r.Min)
	return clamp(out, math.Min(lo, hi), math.Max(lo, hi))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
