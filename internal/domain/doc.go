// Package domain models clustered crime-incident counts rendered as flower
// glyphs on paired day and night maps.
//
// # Data Source
//
// Incident data arrives as pivoted CSV files produced offline: incidents are
// clustered spatially, split by day/night, and counted per crime category.
// One row describes one cluster centroid in one partition (and, for the
// time-series variants, one time bucket).
//
// # Column Layout
//
// Columns are positional and the header row is discarded:
//
//	cluster, centroid_lat, centroid_lon, [time,] DN, all,
//	drug, financial, low_level_property, low_level_violent, non_criminal,
//	public_order, severe_property, severe_violent, sexual_offenses, weapon
//
// The optional time column is detected from the header: when the fourth header
// cell is "time" the file is a time-series variant. See [ParseRecords].
//
// # Numeric Conventions
//
// Integer columns follow lenient integer parsing: leading whitespace and sign
// are accepted and parsing stops at the first non-digit, so "12.7" reads as 12
// and "7abc" as 7. A field with no leading digits is malformed and becomes
// NaN. Lat/lon are parsed as floats; malformed values also become NaN.
//
// NaN is not an error. It flows into normalization and glyph geometry and
// produces a visually degenerate glyph, which is acceptable.
//
// Counts are held as float64 for that reason, even though well-formed values
// are always whole numbers.
//
// # Day/Night Partition
//
//	"D"  →  day view
//	"N"  →  night view
//
// Any other DN value leaves the record in neither view.
//
// # Categories
//
// The category set is closed: ten tags in column order. Each tag carries a
// display color and a visibility threshold from static configuration
// ([Catalog]). Looking up an unknown tag returns [DefaultStyle] and logs a
// warning rather than failing.
//
// # Aggregation
//
// [Aggregate] groups records by integer time and sums counts per category.
// Buckets come out in first-occurrence order; callers rendering a time series
// must sort them by time ([SortBucketsByTime], or use [Series] which does
// both). Summation skips NaN so a single malformed cell does not poison a
// bucket.
package domain
