package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// timeColumn is the header cell that marks a time-series variant.
const timeColumn = "time"

// ParseStats summarizes a parse for logging and metrics.
type ParseStats struct {
	Rows            int
	MalformedFields int
	UnknownDN       int
	TimeSeries      bool
}

// ParseRecords reads pivoted incident CSV. The header row is consumed only to
// detect whether a time column is present. Malformed numeric fields become
// NaN and are counted in the returned stats; they never fail the parse.
// Missing trailing columns are treated as malformed. An error is returned
// only when the underlying reader fails.
func ParseRecords(r io.Reader) ([]IncidentRecord, ParseStats, error) {
	cr := newCSVReader(r)

	var stats ParseStats
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	stats.TimeSeries = len(header) > 3 && strings.EqualFold(strings.TrimSpace(header[3]), timeColumn)

	var records []IncidentRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		rec, malformed := parseRow(row, stats.TimeSeries)
		stats.Rows++
		stats.MalformedFields += malformed
		if rec.Partition == Unknown {
			stats.UnknownDN++
		}
		records = append(records, rec)
	}
	return records, stats, nil
}

// parseRow converts one row and returns the number of malformed numeric fields.
func parseRow(row []string, timeSeries bool) (IncidentRecord, int) {
	p := rowParser{row: row}

	rec := IncidentRecord{}
	cluster := p.int()
	if math.IsNaN(cluster) {
		rec.Cluster = -1
	} else {
		rec.Cluster = int(cluster)
	}
	rec.Lat = p.float()
	rec.Lon = p.float()
	if timeSeries {
		t := p.int()
		if !math.IsNaN(t) {
			rec.Time = int(t)
			rec.HasTime = true
		}
	}
	rec.Partition = ParsePartition(strings.TrimSpace(p.next()))
	rec.Total = p.int()
	for i := range rec.Counts {
		rec.Counts[i] = p.int()
	}
	return rec, p.malformed
}

type rowParser struct {
	row       []string
	pos       int
	malformed int
}

func (p *rowParser) next() string {
	if p.pos >= len(p.row) {
		p.pos++
		return ""
	}
	s := p.row[p.pos]
	p.pos++
	return s
}

func (p *rowParser) int() float64 {
	v := parseLenientInt(p.next())
	if math.IsNaN(v) {
		p.malformed++
	}
	return v
}

func (p *rowParser) float() float64 {
	v := parseLenientFloat(p.next())
	if math.IsNaN(v) {
		p.malformed++
	}
	return v
}

// parseLenientInt reads an optional sign and leading digits, ignoring any
// trailing characters. No digits yields NaN.
func parseLenientInt(s string) float64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return float64(n)
	}

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// parseLenientFloat parses a decimal float, returning NaN on failure.
func parseLenientFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseHulls reads cluster outline vertices from CSV with named columns
// lat, lon, dn, cluster (any order). Rows with malformed coordinates or
// cluster ids are skipped.
func ParseHulls(r io.Reader) ([]HullVertex, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hull header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"lat", "lon", "dn", "cluster"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("hull csv missing column %q", col)
		}
	}

	cell := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []HullVertex
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read hull row: %w", err)
		}
		lat := parseLenientFloat(cell(row, "lat"))
		lon := parseLenientFloat(cell(row, "lon"))
		cluster := parseLenientInt(cell(row, "cluster"))
		if math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(cluster) {
			continue
		}
		out = append(out, HullVertex{
			Lat:       lat,
			Lon:       lon,
			Partition: ParsePartition(strings.TrimSpace(cell(row, "dn"))),
			Cluster:   int(cluster),
		})
	}
	return out, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}
