package domain

import (
	"context"
	"time"
)

// RawEvent is one undecoded user interaction read from an external event
// source (a Kafka topic or a replay script line).
type RawEvent struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string

	// Commit acknowledges the event at its source. Nil when the source has
	// nothing to acknowledge.
	Commit func(ctx context.Context) error
}
