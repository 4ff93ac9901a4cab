package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// maxListed caps how many offending rows a phase prints.
const maxListed = 10

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	total  int
}

func (p *phase) errorf(format string, args ...any) {
	p.total++
	if len(p.errors) < maxListed {
		p.errors = append(p.errors, fmt.Sprintf(format, args...))
	}
}

func (p *phase) passed() bool { return p.total == 0 }

func cmdValidate(a *app) *cli.Command {
	var only string
	return &cli.Command{
		Name:  "validate",
		Usage: "Load every catalog source and report data quality problems",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source",
				Usage:       "Validate only this source id",
				Destination: &only,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			fetcher := a.newFetcher()
			sources := fetcher.Sources()
			if len(sources) == 0 {
				return goerr.New("catalog defines no sources", goerr.V("catalog", a.cfg.CatalogPath))
			}

			allPassed := true
			for _, src := range sources {
				if only != "" && src.ID != only {
					continue
				}
				ds, err := fetcher.Fetch(ctx, src.ID)
				if err != nil {
					return goerr.Wrap(err, "load source", goerr.V("source", src.ID))
				}
				if !report(os.Stdout, ds, validateDataset(ds)) {
					allPassed = false
				}
			}
			if !allPassed {
				return goerr.New("validation failed")
			}
			return nil
		},
	}
}

// validateDataset runs the integrity phases over one loaded source.
func validateDataset(ds domain.Dataset) []*phase {
	fields := &phase{name: "Numeric fields parse"}
	if ds.Stats.MalformedFields > 0 {
		fields.errorf("%d malformed field(s) read as missing", ds.Stats.MalformedFields)
	}

	dn := &phase{name: "Every row is day or night"}
	if ds.Stats.UnknownDN > 0 {
		dn.errorf("%d row(s) with an unknown DN value excluded", ds.Stats.UnknownDN)
	}

	totals := &phase{name: "Total equals category sum"}
	for _, r := range ds.Records {
		if math.IsNaN(r.Total) || hasNaN(r.Counts) {
			continue
		}
		if sum := r.Counts.Sum(); math.Abs(sum-r.Total) > 1e-9 {
			totals.errorf("cluster %d (%s, t=%d): all=%g, categories sum to %g",
				r.Cluster, r.Partition, r.Time, r.Total, sum)
		}
	}

	hulls := &phase{name: "Hulls match clusters"}
	clusters := make(map[domain.Partition]map[int]bool)
	for _, r := range ds.Records {
		if clusters[r.Partition] == nil {
			clusters[r.Partition] = map[int]bool{}
		}
		clusters[r.Partition][r.Cluster] = true
	}
	type hullKey struct {
		partition domain.Partition
		cluster   int
	}
	seen := map[hullKey]bool{}
	for _, v := range ds.Hulls {
		key := hullKey{v.Partition, v.Cluster}
		if seen[key] {
			continue
		}
		seen[key] = true
		if !clusters[v.Partition][v.Cluster] {
			hulls.errorf("hull for cluster %d (%s) has no records", v.Cluster, v.Partition)
		}
	}

	return []*phase{fields, dn, totals, hulls}
}

func hasNaN(c domain.Counts) bool {
	for _, v := range c {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// report prints a per-source summary and returns whether every phase passed.
func report(w io.Writer, ds domain.Dataset, phases []*phase) bool {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "=== %s ===\n", ds.Source)
	fmt.Fprintf(w, "Records: %d rows, time series: %t, hull vertices: %d\n",
		ds.Stats.Rows, ds.Stats.TimeSeries, len(ds.Hulls))

	allPassed := true
	for _, p := range phases {
		status := pass("PASS")
		if !p.passed() {
			status = fail(fmt.Sprintf("FAIL (%d errors)", p.total))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
		if more := p.total - len(p.errors); more > 0 {
			fmt.Fprintf(w, "  ... and %d more\n", more)
		}
	}
	fmt.Fprintln(w)
	return allPassed
}
