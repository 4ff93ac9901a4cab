package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/observability"
	"github.com/couchcryptid/crime-flowers/internal/pipeline"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockExtractor hands out events one batch at a time. With finite set it
// returns io.EOF after the last batch; otherwise it blocks until cancelled.
// An entry in errs is returned alongside the batch at the same index.
type mockExtractor struct {
	batches [][]domain.RawEvent
	finite  bool
	errs    []error
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		var batch []domain.RawEvent
		if i < len(m.batches) {
			batch = m.batches[i]
		}
		return batch, m.errs[i]
	}
	if i >= len(m.batches) {
		if m.finite {
			return nil, io.EOF
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockPoster struct {
	mu     sync.Mutex
	posted []viz.Event
	err    error
}

func (m *mockPoster) Post(_ context.Context, ev viz.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.posted = append(m.posted, ev)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func raw(value string) domain.RawEvent {
	return domain.RawEvent{Value: []byte(value), Topic: "flower-events"}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{raw(`{"type":"source","source":"dn_time"}`), raw(`{"type":"toggle","category":"drug"}`)},
		{raw(`{"type":"brush","selection":[1,2],"domain":true}`)},
	}}
	poster := &mockPoster{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), poster, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	want := []viz.Event{
		viz.SourceSwitch{Source: "dn_time"},
		viz.CategoryToggle{Category: "drug"},
		viz.BrushEnd{Selection: [2]float64{1, 2}, Domain: true},
	}
	if diff := cmp.Diff(want, poster.posted); diff != "" {
		t.Errorf("posted events mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, p.Ready())
}

func TestPipeline_Run_StopsWhenExhausted(t *testing.T) {
	ext := &mockExtractor{
		batches: [][]domain.RawEvent{{raw(`{"type":"toggle","category":"weapon"}`)}},
		finite:  true,
	}
	poster := &mockPoster{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), poster, slog.Default(), newTestMetrics(), 10)

	err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, poster.posted, 1)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no events, blocks until cancelled
	poster := &mockPoster{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), poster, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, poster.posted)
}

func TestPipeline_Run_DecodeErrorIsSkippedAndCommitted(t *testing.T) {
	var commits atomic.Int32
	bad := raw(`{"type":"explode"}`)
	bad.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad}}, finite: true}
	poster := &mockPoster{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), poster, slog.Default(), newTestMetrics(), 10)

	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, poster.posted)
	assert.Equal(t, int32(1), commits.Load())
	assert.False(t, p.Ready())
}

func TestPipeline_Run_CommitsAfterPost(t *testing.T) {
	commitCalled := false

	ev := raw(`{"type":"source","source":"dn"}`)
	ev.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{ev}}, finite: true}
	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), &mockPoster{}, slog.Default(), newTestMetrics(), 10)

	require.NoError(t, p.Run(context.Background()))
	assert.True(t, commitCalled)
}

func TestPipeline_Run_PosterStopped(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw(`{"type":"source","source":"dn"}`)}}}
	poster := &mockPoster{err: viz.ErrStopped}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), poster, slog.Default(), newTestMetrics(), 10)

	err := p.Run(context.Background())
	require.ErrorIs(t, err, viz.ErrStopped)
}

func TestPipeline_Run_BacksOffOnExtractError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ext := &mockExtractor{
		errs:    []error{errors.New("broker down")},
		batches: [][]domain.RawEvent{nil, {raw(`{"type":"toggle","category":"drug"}`)}},
		finite:  true,
	}
	poster := &mockPoster{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), poster, slog.Default(), newTestMetrics(), 10).
		WithClock(clock)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	assert.Empty(t, poster.posted, "nothing delivered while backing off")
	clock.Advance(200 * time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not resume after backoff")
	}
	assert.Len(t, poster.posted, 1)
}

func TestPipeline_Run_DeliversPartialBatchBeforeBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var commits atomic.Int32
	committed := func(value string) domain.RawEvent {
		r := raw(value)
		r.Commit = func(_ context.Context) error {
			commits.Add(1)
			return nil
		}
		return r
	}
	ext := &mockExtractor{
		errs: []error{errors.New("connection reset")},
		batches: [][]domain.RawEvent{
			{committed(`{"type":"source","source":"dn_time"}`), committed(`{"type":"brush","selection":[3,6],"domain":true}`)},
			{committed(`{"type":"toggle","category":"drug"}`)},
		},
		finite: true,
	}
	poster := &mockPoster{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), poster, slog.Default(), metrics, 10).
		WithClock(clock)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	poster.mu.Lock()
	assert.Equal(t, []viz.Event{
		viz.SourceSwitch{Source: "dn_time"},
		viz.BrushEnd{Selection: [2]float64{3, 6}, Domain: true},
	}, poster.posted, "events read before the error are delivered")
	poster.mu.Unlock()
	assert.Equal(t, int32(2), commits.Load())
	var m dto.Metric
	require.NoError(t, metrics.EventSourceErrors.Write(&m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
	clock.Advance(200 * time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not resume after backoff")
	}
	assert.Len(t, poster.posted, 3)
	assert.Equal(t, int32(3), commits.Load())
}

func TestEventTransformer_Transform(t *testing.T) {
	tfm := pipeline.NewTransformer(slog.Default())

	ev, err := tfm.Transform(context.Background(), raw(`{"type":"move","view":"day","lat":41.8,"lon":-87.6,"zoom":12}`))
	require.NoError(t, err)
	assert.Equal(t, viz.MapMove{View: "day", Lat: 41.8, Lon: -87.6, Zoom: 12}, ev)

	_, err = tfm.Transform(context.Background(), raw(`{`))
	assert.Error(t, err)
}
