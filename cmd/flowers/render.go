package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/couchcryptid/crime-flowers/internal/viz"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdRender(a *app) *cli.Command {
	var (
		src    string
		out    string
		window string
		show   string
	)
	return &cli.Command{
		Name:  "render",
		Usage: "Load one source, apply a window and categories, and write the views to disk",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source",
				Usage:       "Source id (default: the catalog's default source)",
				Destination: &src,
			},
			&cli.StringFlag{
				Name:        "out",
				Usage:       "Output directory for day/night GeoJSON and SVG charts",
				Value:       "build",
				Destination: &out,
			},
			&cli.StringFlag{
				Name:        "window",
				Usage:       "Time window as start,end bucket times (time-series sources only)",
				Destination: &window,
			},
			&cli.StringFlag{
				Name:        "show",
				Usage:       "Comma-separated categories to draw as dots",
				Destination: &show,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			if src == "" {
				src = a.catalog.Default()
			}
			if src == "" {
				return goerr.New("no source given and catalog has no default")
			}
			events, err := renderEvents(src, window, show)
			if err != nil {
				return err
			}
			return a.drive(ctx, events, out)
		},
	}
}

// renderEvents turns render flags into the event sequence a user would
// produce: pick the source, brush, then switch categories on.
func renderEvents(src, window, show string) ([]viz.Event, error) {
	events := []viz.Event{viz.SourceSwitch{Source: src}}
	if window != "" {
		sel, err := parseWindow(window)
		if err != nil {
			return nil, err
		}
		events = append(events, viz.BrushEnd{Selection: sel, Domain: true})
	}
	cats, err := parseCategories(show)
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		events = append(events, viz.CategoryToggle{Category: c})
	}
	return events, nil
}

func parseWindow(s string) ([2]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]float64{}, goerr.New("window must be start,end", goerr.V("window", s))
	}
	var sel [2]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [2]float64{}, goerr.Wrap(err, "invalid window bound", goerr.V("window", s))
		}
		sel[i] = v
	}
	return sel, nil
}

// drive runs a controller through events, one at a time, then exports the
// views to out.
func (a *app) drive(ctx context.Context, events []viz.Event, out string) error {
	s, err := a.newSession(nil)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := s.start(runCtx)
	defer func() {
		cancel()
		<-done
	}()

	for _, ev := range events {
		if err := s.ctrl.Post(ctx, ev); err != nil {
			return goerr.Wrap(err, "post event")
		}
		if err := s.ctrl.WaitIdle(ctx); err != nil {
			return goerr.Wrap(err, "wait for controller")
		}
		if sw, ok := ev.(viz.SourceSwitch); ok {
			if err := s.ctrl.CheckReadiness(ctx); err != nil {
				return goerr.Wrap(err, "data source failed to load", goerr.V("source", sw.Source))
			}
		}
	}
	return s.export(out, a.logger)
}
