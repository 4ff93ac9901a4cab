package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/couchcryptid/crime-flowers/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/crime-flowers/internal/adapter/kafka"
	"github.com/couchcryptid/crime-flowers/internal/pipeline"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	"github.com/urfave/cli/v3"
)

func cmdServe(a *app) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the controller behind an HTTP API, optionally fed from Kafka",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		sink   viz.FrameSink
	)
	if a.cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(a.cfg, logger)
		if a.cfg.KafkaFramesTopic != "" {
			writer = kafkaadapter.NewWriter(a.cfg, logger)
			sink = writer
		}
		logger.Info("kafka enabled", "events_topic", a.cfg.KafkaEventsTopic, "frames_topic", a.cfg.KafkaFramesTopic)
	} else {
		logger.Info("kafka disabled")
	}

	s, err := a.newSession(sink)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := s.start(runCtx)

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, s.ctrl, httpadapter.Views{
		Maps:   map[string]httpadapter.GeoJSONWriter{"day": s.day, "night": s.night},
		Charts: map[string]httpadapter.SVGRenderer{"day": s.dayChart, "night": s.nightChart},
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if def := a.catalog.Default(); def != "" {
		if err := s.ctrl.Post(ctx, viz.SourceSwitch{Source: def}); err != nil {
			logger.Error("load default source", "source", def, "error", err)
		}
	}

	// Start event pipeline.
	if reader != nil {
		p := pipeline.New(reader, pipeline.NewTransformer(logger), s.ctrl, logger, a.metrics, a.cfg.BatchSize)
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	cancel()
	<-done
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
