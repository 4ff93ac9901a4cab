package domain

import (
	"cmp"
	"math"
	"slices"
)

// Aggregate groups records by time and sums each category across the group.
// Records without a time are skipped. Buckets are returned in the order each
// time value first occurs; sort them before rendering a time series.
func Aggregate(records []IncidentRecord, cats []Category) []AggregatedBucket {
	index := make(map[int]int)
	var buckets []AggregatedBucket
	for _, rec := range records {
		if !rec.HasTime {
			continue
		}
		i, ok := index[rec.Time]
		if !ok {
			i = len(buckets)
			index[rec.Time] = i
			buckets = append(buckets, AggregatedBucket{Time: rec.Time})
		}
		for _, cat := range cats {
			v := rec.Counts.Get(cat)
			if math.IsNaN(v) {
				continue
			}
			buckets[i].Counts[cat] += v
		}
	}
	return buckets
}

// SortBucketsByTime orders buckets by ascending time, in place.
func SortBucketsByTime(buckets []AggregatedBucket) {
	slices.SortFunc(buckets, func(a, b AggregatedBucket) int {
		return cmp.Compare(a.Time, b.Time)
	})
}

// Series aggregates and sorts in one step, ready for a time-series chart.
func Series(records []IncidentRecord, cats []Category) []AggregatedBucket {
	buckets := Aggregate(records, cats)
	SortBucketsByTime(buckets)
	return buckets
}

// GlobalMax is the largest per-category sum across all buckets, used as the
// shared y-domain of the chart.
func GlobalMax(buckets []AggregatedBucket, cats []Category) float64 {
	var hi float64
	for _, b := range buckets {
		for _, cat := range cats {
			if v := b.Counts.Get(cat); v > hi {
				hi = v
			}
		}
	}
	return hi
}

// DistinctTimes returns the sorted set of times present in records.
func DistinctTimes(records []IncidentRecord) []int {
	seen := make(map[int]struct{})
	var times []int
	for _, rec := range records {
		if !rec.HasTime {
			continue
		}
		if _, ok := seen[rec.Time]; ok {
			continue
		}
		seen[rec.Time] = struct{}{}
		times = append(times, rec.Time)
	}
	slices.Sort(times)
	return times
}

// SplitByPartition returns the day and night subsets, preserving order.
func SplitByPartition(records []IncidentRecord) (day, night []IncidentRecord) {
	for _, rec := range records {
		switch rec.Partition {
		case Day:
			day = append(day, rec)
		case Night:
			night = append(night, rec)
		}
	}
	return day, night
}
