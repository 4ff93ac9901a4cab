package scale

// TimeScale is a linear map between bucket times (domain) and chart pixels
// (range), used to invert brush selections.
type TimeScale struct {
	DomainMin float64 `json:"domain_min"`
	DomainMax float64 `json:"domain_max"`
	RangeMin  float64 `json:"range_min"`
	RangeMax  float64 `json:"range_max"`
}

// NewTimeScale maps [t0, t1] onto [x0, x1].
func NewTimeScale(t0, t1, x0, x1 float64) TimeScale {
	return TimeScale{DomainMin: t0, DomainMax: t1, RangeMin: x0, RangeMax: x1}
}

// Apply maps a time to a pixel. A zero-width domain maps to the range midpoint.
func (s TimeScale) Apply(t float64) float64 {
	if s.DomainMax == s.DomainMin {
		return (s.RangeMin + s.RangeMax) / 2
	}
	return s.RangeMin + (t-s.DomainMin)*(s.RangeMax-s.RangeMin)/(s.DomainMax-s.DomainMin)
}

// Invert maps a pixel back to a time. A zero-width range maps to DomainMin.
// The result is not clamped; a selection dragged past the axis extends past
// the data extent, which only widens the window.
func (s TimeScale) Invert(x float64) float64 {
	if s.RangeMax == s.RangeMin {
		return s.DomainMin
	}
	return s.DomainMin + (x-s.RangeMin)*(s.DomainMax-s.DomainMin)/(s.RangeMax-s.RangeMin)
}
