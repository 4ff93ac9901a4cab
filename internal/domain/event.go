package domain

import "math"

// Partition tags which of the two paired views a record belongs to.
type Partition string

const (
	Day     Partition = "D"
	Night   Partition = "N"
	Unknown Partition = ""
)

// ParsePartition maps a DN cell to a Partition. Anything other than "D" or
// "N" (after trimming) is Unknown.
func ParsePartition(s string) Partition {
	switch Partition(s) {
	case Day:
		return Day
	case Night:
		return Night
	default:
		return Unknown
	}
}

// Counts holds one value per category, indexed by Category.
type Counts [NumCategories]float64

// Get returns the count for a category, or NaN for an invalid category.
func (c Counts) Get(cat Category) float64 {
	if !cat.Valid() {
		return math.NaN()
	}
	return c[cat]
}

// Values returns the counts for the given categories, in order.
func (c Counts) Values(cats []Category) []float64 {
	out := make([]float64, len(cats))
	for i, cat := range cats {
		out[i] = c.Get(cat)
	}
	return out
}

// Sum adds all counts, skipping NaN.
func (c Counts) Sum() float64 {
	var total float64
	for _, v := range c {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// IncidentRecord is one cluster centroid row. Records are values; nothing
// mutates them after parsing.
type IncidentRecord struct {
	Cluster   int       `json:"cluster"`
	Lat       float64   `json:"centroid_lat"`
	Lon       float64   `json:"centroid_lon"`
	Time      int       `json:"time,omitempty"`
	HasTime   bool      `json:"-"`
	Partition Partition `json:"dn"`
	Total     float64   `json:"all"`
	Counts    Counts    `json:"categories"`
}

// AggregatedBucket is the per-category sum of all records sharing a time.
type AggregatedBucket struct {
	Time   int    `json:"time"`
	Counts Counts `json:"categories"`
}

// TimeWindow is an inclusive [Start, End] interval over bucket times.
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewTimeWindow orders the endpoints so Start <= End.
func NewTimeWindow(a, b float64) TimeWindow {
	if b < a {
		a, b = b, a
	}
	return TimeWindow{Start: a, End: b}
}

// Contains reports whether t lies in the window, endpoints included.
func (w TimeWindow) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// HullVertex is one vertex of a cluster outline.
type HullVertex struct {
	Lat       float64
	Lon       float64
	Partition Partition
	Cluster   int
}

// Dataset is one loaded data source: its records, optional cluster outlines,
// and parse statistics.
type Dataset struct {
	Source  string
	Records []IncidentRecord
	Hulls   []HullVertex
	Stats   ParseStats
}
