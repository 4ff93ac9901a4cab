package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/crime-flowers/internal/config"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes frame summaries to a Kafka topic.
// It implements viz.FrameSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured frames topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFramesTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishFrame serializes and writes one frame. Frames are keyed by session
// so one controller's frames stay ordered on a single partition.
func (w *Writer) PublishFrame(ctx context.Context, f viz.Frame) error {
	msg, err := serializeToMessage(f)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Seq, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Frame into a Kafka message.
func serializeToMessage(f viz.Frame) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize frame: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(f.Session),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(f.Source)},
			{Key: "seq", Value: []byte(strconv.FormatUint(f.Seq, 10))},
			{Key: "rendered_at", Value: []byte(time.UnixMilli(f.RenderedAt).UTC().Format(time.RFC3339))},
		},
	}, nil
}

// EventMessage encodes a user event for the events topic. It is the producer
// side of Reader and is used by tests and tooling.
func EventMessage(ev viz.Event) (kafkago.Message, error) {
	data, err := viz.EncodeEvent(ev)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Value:   data,
		Headers: []kafkago.Header{{Key: "event_type", Value: []byte(viz.EventType(ev))}},
	}, nil
}
