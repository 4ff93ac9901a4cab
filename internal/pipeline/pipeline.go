package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/observability"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source. A source
// that has run dry for good returns io.EOF, possibly alongside a final batch.
// Any other error may also come with the events read before it failed; those
// are delivered before the pipeline backs off.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer decodes a raw event into a controller event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (viz.Event, error)
}

// Poster delivers decoded events. It is implemented by viz.Controller.
type Poster interface {
	Post(ctx context.Context, ev viz.Event) error
}

// Pipeline feeds events from an external source into the controller.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	poster      Poster
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, p Poster, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		poster:      p,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		batchSize:   batchSize,
	}
}

// WithClock replaces the clock used for backoff sleeps.
func (p *Pipeline) WithClock(c clockwork.Clock) *Pipeline {
	p.clock = c
	return p
}

// Ready reports whether at least one event has been delivered.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// Run pumps events until the context is cancelled or the source is exhausted.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("event pipeline started", "batch_size", p.batchSize)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		done, err := p.processBatch(ctx, &backoff)
		if err != nil || done {
			return err
		}
	}
}

// processBatch runs one extract-decode-post cycle. It reports done when the
// pipeline should stop; err is set only when the poster is gone.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) (bool, error) {
	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	exhausted := errors.Is(err, io.EOF)
	failed := err != nil && !exhausted
	if failed && ctx.Err() != nil {
		return true, nil
	}

	for _, raw := range batch {
		if err := p.deliver(ctx, raw); err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, err
		}
	}

	if failed {
		p.metrics.EventSourceErrors.Inc()
		p.logger.Error("extract batch failed", "error", err, "delivered", len(batch))
		return !p.backoffOrStop(ctx, backoff), nil
	}
	*backoff = initialBackoff

	if exhausted {
		p.logger.Info("event source exhausted")
		return true, nil
	}
	return false, nil
}

// deliver decodes and posts one event, then commits it. Undecodable events
// are committed and skipped.
func (p *Pipeline) deliver(ctx context.Context, raw domain.RawEvent) error {
	ev, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		p.logger.Warn("decode failed, skipping event",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		p.metrics.EventSourceErrors.Inc()
		p.commitOffset(ctx, raw)
		return nil
	}

	if err := p.poster.Post(ctx, ev); err != nil {
		return err
	}
	p.ready.Store(true)
	p.commitOffset(ctx, raw)
	return nil
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, p.clock, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the event if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
