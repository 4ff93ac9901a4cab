package main

import (
	"context"
	"errors"

	kafkaadapter "github.com/couchcryptid/crime-flowers/internal/adapter/kafka"
	"github.com/couchcryptid/crime-flowers/internal/adapter/script"
	"github.com/couchcryptid/crime-flowers/internal/pipeline"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdReplay(a *app) *cli.Command {
	var (
		scriptPath string
		src        string
		out        string
	)
	return &cli.Command{
		Name:  "replay",
		Usage: "Feed recorded user events into the controller, then write the views",
		Description: "Events come from -script, a JSON Lines file, or from the Kafka events " +
			"topic when KAFKA_ENABLED=true and no script is given. Kafka replay runs until interrupted.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "script",
				Usage:       "JSON Lines event script",
				Destination: &scriptPath,
			},
			&cli.StringFlag{
				Name:        "source",
				Usage:       "Source id to load before the first event",
				Destination: &src,
			},
			&cli.StringFlag{
				Name:        "out",
				Usage:       "Output directory; empty skips export",
				Destination: &out,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			var extractor pipeline.BatchExtractor
			switch {
			case scriptPath != "":
				r, err := script.Open(scriptPath, a.logger)
				if err != nil {
					return err
				}
				defer r.Close()
				extractor = r
			case a.cfg.KafkaEnabled:
				r := kafkaadapter.NewReader(a.cfg, a.logger)
				defer r.Close()
				extractor = r
			default:
				return goerr.New("replay needs -script or KAFKA_ENABLED=true")
			}
			return a.replay(ctx, extractor, src, out)
		},
	}
}

func (a *app) replay(ctx context.Context, extractor pipeline.BatchExtractor, src, out string) error {
	var sink viz.FrameSink
	if a.cfg.KafkaEnabled && a.cfg.KafkaFramesTopic != "" {
		w := kafkaadapter.NewWriter(a.cfg, a.logger)
		defer w.Close()
		sink = w
	}
	s, err := a.newSession(sink)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := s.start(runCtx)
	defer func() {
		cancel()
		<-done
	}()

	if src != "" {
		if err := s.ctrl.Post(ctx, viz.SourceSwitch{Source: src}); err != nil {
			return goerr.Wrap(err, "post initial source")
		}
	}

	p := pipeline.New(extractor, pipeline.NewTransformer(a.logger), s.ctrl, a.logger, a.metrics, a.cfg.BatchSize)
	if err := p.Run(ctx); err != nil {
		return goerr.Wrap(err, "replay events")
	}

	// Let the last fetch land even if replay was interrupted.
	idleCtx, idleCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer idleCancel()
	if err := s.ctrl.WaitIdle(idleCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return goerr.Wrap(err, "wait for controller")
		}
		a.logger.Warn("controller still busy, exporting current views", "timeout", a.cfg.ShutdownTimeout)
	}

	if out == "" {
		return nil
	}
	return s.export(out, a.logger)
}
