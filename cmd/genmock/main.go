// Command genmock writes a deterministic mock dataset for local runs and
// tests: a time-series pivot CSV, the same clusters without a time column,
// cluster hull outlines, a catalog pointing at them, and a sample event
// script.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -clusters 12 -buckets 10
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/crime-flowers/internal/config"
	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	"gopkg.in/yaml.v3"
)

// Chicago, the default map center.
const (
	baseLat = 41.77324
	baseLon = -87.66513
)

type cluster struct {
	id        int
	lat, lon  float64
	partition domain.Partition
	weights   [domain.NumCategories]float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "output directory")
	clusters := flag.Int("clusters", 12, "clusters per partition")
	buckets := flag.Int("buckets", 10, "time buckets")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *clusters <= 0 || *buckets <= 0 {
		flag.Usage()
		return fmt.Errorf("-clusters and -buckets must be positive")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	cs := makeClusters(rng, *clusters)

	if err := writeCSV(filepath.Join(*out, "dn_time.csv"), pivotRows(rng, cs, *buckets, true)); err != nil {
		return fmt.Errorf("writing time series: %w", err)
	}
	if err := writeCSV(filepath.Join(*out, "dn.csv"), pivotRows(rng, cs, 1, false)); err != nil {
		return fmt.Errorf("writing static: %w", err)
	}
	if err := writeCSV(filepath.Join(*out, "hulls.csv"), hullRows(cs)); err != nil {
		return fmt.Errorf("writing hulls: %w", err)
	}
	if err := writeCatalog(filepath.Join(*out, "catalog.yaml"), *out); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := writeScript(filepath.Join(*out, "events.jsonl"), *buckets); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}

	log.Printf("wrote %d clusters x %d buckets to %s", len(cs), *buckets, *out)
	return nil
}

func makeClusters(rng *rand.Rand, perPartition int) []cluster {
	var cs []cluster
	id := 0
	for _, p := range []domain.Partition{domain.Day, domain.Night} {
		for range perPartition {
			c := cluster{
				id:        id,
				lat:       baseLat + (rng.Float64()-0.5)*0.2,
				lon:       baseLon + (rng.Float64()-0.5)*0.2,
				partition: p,
			}
			for i := range c.weights {
				c.weights[i] = rng.ExpFloat64() * 8
			}
			cs = append(cs, c)
			id++
		}
	}
	return cs
}

func pivotRows(rng *rand.Rand, cs []cluster, buckets int, withTime bool) [][]string {
	header := []string{"cluster", "centroid_lat", "centroid_lon"}
	if withTime {
		header = append(header, "time")
	}
	header = append(header, "DN", "all")
	for _, c := range domain.AllCategories() {
		header = append(header, c.String())
	}

	rows := [][]string{header}
	for t := 1; t <= buckets; t++ {
		// A seasonal swell so the brush has something to find.
		season := 1 + 0.5*math.Sin(2*math.Pi*float64(t)/float64(buckets))
		for _, c := range cs {
			row := []string{strconv.Itoa(c.id), ftoa(c.lat), ftoa(c.lon)}
			if withTime {
				row = append(row, strconv.Itoa(t))
			}
			counts := make([]string, domain.NumCategories)
			total := 0
			for i, w := range c.weights {
				n := int(w * season * (0.5 + rng.Float64()))
				total += n
				counts[i] = strconv.Itoa(n)
			}
			row = append(row, string(c.partition), strconv.Itoa(total))
			rows = append(rows, append(row, counts...))
		}
	}
	return rows
}

// hullRows outlines each cluster with a hexagon around its centroid.
func hullRows(cs []cluster) [][]string {
	rows := [][]string{{"lat", "lon", "dn", "cluster"}}
	for _, c := range cs {
		for k := range 6 {
			a := float64(k) * math.Pi / 3
			rows = append(rows, []string{
				ftoa(c.lat + 0.01*math.Sin(a)),
				ftoa(c.lon + 0.013*math.Cos(a)),
				string(c.partition),
				strconv.Itoa(c.id),
			})
		}
	}
	return rows
}

func writeCatalog(path, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	cat := config.Catalog{
		DefaultSource: "dn_time",
		Sources: []config.SourceEntry{
			{ID: "dn_time", Label: "Day/night by bucket", Location: filepath.Join(abs, "dn_time.csv"), Hulls: filepath.Join(abs, "hulls.csv")},
			{ID: "dn", Label: "Day/night, all time", Location: filepath.Join(abs, "dn.csv"), Hulls: filepath.Join(abs, "hulls.csv")},
		},
	}
	if err := cat.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cat)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeScript(path string, buckets int) error {
	mid := float64(buckets+1) / 2
	events := []viz.Event{
		viz.SourceSwitch{Source: "dn_time"},
		viz.BrushEnd{Selection: [2]float64{1, mid}, Domain: true},
		viz.CategoryToggle{Category: domain.Drug.String()},
		viz.CategoryToggle{Category: domain.Weapon.String()},
		viz.BrushEnd{Selection: [2]float64{mid, float64(buckets)}, Domain: true},
		viz.CategoryToggle{Category: domain.Drug.String()},
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, ev := range events {
		data, err := viz.EncodeEvent(ev)
		if err != nil {
			return err
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return f.Close()
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 5, 64) }
