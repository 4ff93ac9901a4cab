// Command flowers loads clustered crime data and draws it as flower glyphs on
// a pair of day/night map views with a brushable time-series chart under
// each.
//
// Usage:
//
//	flowers render -source dn_time -out build/ -window 3,6
//	flowers replay -script events.jsonl -out build/
//	flowers serve
//	flowers validate
//
// Process settings come from the environment (LOG_LEVEL, CATALOG_PATH,
// KAFKA_ENABLED, ...); see internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crime-flowers/internal/config"
	"github.com/couchcryptid/crime-flowers/internal/observability"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	a := &app{}

	cmd := &cli.Command{
		Name:  "flowers",
		Usage: "Draw clustered crime data as flower glyphs on day and night maps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "catalog",
				Usage:       "Path to the catalog YAML (sources, category styles, glyph size)",
				Category:    "Data",
				Sources:     cli.EnvVars("CATALOG_PATH"),
				Destination: &a.catalogPath,
			},
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			return ctx, a.init()
		},
		After: func(_ context.Context, _ *cli.Command) error {
			return a.writeMetrics()
		},
		Commands: []*cli.Command{
			cmdRender(a),
			cmdReplay(a),
			cmdServe(a),
			cmdValidate(a),
		},
	}

	if err := cmd.Run(ctx, args); err != nil {
		return goerr.Wrap(err, "flowers failed")
	}
	return nil
}

// init loads environment config and the catalog, and builds the logger and
// metrics every subcommand shares.
func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return goerr.Wrap(err, "load config")
	}
	if a.catalogPath != "" {
		cfg.CatalogPath = a.catalogPath
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	a.catalog = catalog
	a.metrics = observability.NewMetrics()
	return nil
}

// writeMetrics dumps the default registry in text exposition format when
// METRICS_FILE is set, for node_exporter's textfile collector.
func (a *app) writeMetrics() error {
	if a.cfg == nil || a.cfg.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, prometheus.DefaultGatherer); err != nil {
		return goerr.Wrap(err, "write metrics file", goerr.V("path", a.cfg.MetricsFile))
	}
	return nil
}
