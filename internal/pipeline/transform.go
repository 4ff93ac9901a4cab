package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/viz"
)

// EventTransformer implements Transformer by decoding the JSON event wire
// format.
type EventTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an EventTransformer.
func NewTransformer(logger *slog.Logger) *EventTransformer {
	return &EventTransformer{logger: logger}
}

func (t *EventTransformer) Transform(_ context.Context, raw domain.RawEvent) (viz.Event, error) {
	ev, err := viz.DecodeEvent(raw.Value)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("event decoded", "type", raw.Headers["event_type"], "offset", raw.Offset)
	return ev, nil
}
