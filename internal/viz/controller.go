package viz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/glyph"
	"github.com/couchcryptid/crime-flowers/internal/mapview"
	"github.com/couchcryptid/crime-flowers/internal/observability"
	"github.com/golang/geo/s2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrStopped is returned when posting to a controller whose loop has exited.
var ErrStopped = errors.New("controller stopped")

// Fetcher loads a data source by id.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (domain.Dataset, error)
}

// MapView is the map collaborator each partition is drawn on.
type MapView interface {
	AddMarker(m mapview.Marker)
	RemoveAllMarkers()
	RemoveMarkersByTag(tag string)
	SetView(center s2.LatLng, zoom float64)
	OnMove(fn mapview.MoveFunc)
}

// Batcher is implemented by views that can apply several mutations as one
// frame.
type Batcher interface {
	Batch(fn func())
}

// OverlaySetter is implemented by views that can draw cluster hulls.
type OverlaySetter interface {
	SetOverlays(overlays []mapview.Overlay)
}

// Chart is the time-series collaborator for one partition.
type Chart interface {
	Draw(buckets []domain.AggregatedBucket, cats []domain.Category, globalMax float64) error
	Emphasize(w domain.TimeWindow)
}

// FrameSink receives a summary after every view update.
type FrameSink interface {
	PublishFrame(ctx context.Context, f Frame) error
}

// Deps are the collaborators a Controller drives. Fetcher, Day, Night,
// Metrics and Logger are required.
type Deps struct {
	Fetcher    Fetcher
	Day        MapView
	Night      MapView
	DayChart   Chart
	NightChart Chart
	Catalog    *domain.Catalog
	Sink       FrameSink
	Metrics    *observability.Metrics
	Clock      clockwork.Clock
	Logger     *slog.Logger
}

type view struct {
	name      string
	partition domain.Partition
	mapView   MapView
	chart     Chart
}

// Controller owns the visualization state. Every mutation happens on the
// goroutine running Run; other goroutines talk to it through Post.
type Controller struct {
	cfg     Config
	fetcher Fetcher
	catalog *domain.Catalog
	sink    FrameSink
	metrics *observability.Metrics
	clock   clockwork.Clock
	logger  *slog.Logger
	views   [2]view
	session string

	inbox chan Event
	done  chan struct{}

	// Loop-owned.
	state    State
	seq      uint64
	pending  bool
	brushed  *BrushEnd
	cancel   context.CancelFunc
	waiters  []chan struct{}
	frameSeq uint64
}

// New wires a controller and links the two map views so panning one pans
// the other.
func New(cfg Config, deps Deps) *Controller {
	if len(cfg.Categories) == 0 {
		cfg.Categories = domain.AllCategories()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Catalog == nil {
		deps.Catalog = domain.NewCatalog(nil, deps.Logger)
	}
	c := &Controller{
		cfg:     cfg,
		fetcher: deps.Fetcher,
		catalog: deps.Catalog,
		sink:    deps.Sink,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		logger:  deps.Logger,
		views: [2]view{
			{name: "day", partition: domain.Day, mapView: deps.Day, chart: deps.DayChart},
			{name: "night", partition: domain.Night, mapView: deps.Night, chart: deps.NightChart},
		},
		session: uuid.NewString(),
		inbox:   make(chan Event, 64),
		done:    make(chan struct{}),
		state:   State{Visible: map[domain.Category]bool{}},
	}
	mapview.Sync(deps.Day, deps.Night)
	return c
}

// Session identifies this controller in logs and published frames.
func (c *Controller) Session() string { return c.session }

// Run processes events until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.metrics.ControllerUp.Set(1)
	defer c.metrics.ControllerUp.Set(0)
	defer close(c.done)

	c.logger.Info("controller started",
		"session", c.session,
		"mode", c.cfg.Mode,
		"tiles", c.cfg.TileStyle,
	)
	for {
		select {
		case <-ctx.Done():
			if c.cancel != nil {
				c.cancel()
			}
			c.logger.Info("controller stopped", "session", c.session)
			return nil
		case ev := <-c.inbox:
			c.handle(ctx, ev)
		}
	}
}

// Post queues an event for the loop.
func (c *Controller) Post(ctx context.Context, ev Event) error {
	select {
	case c.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := c.Post(ctx, snapshotRequest{reply: reply}); err != nil {
		return State{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-c.done:
		return State{}, ErrStopped
	}
}

// WaitIdle blocks until every event posted before it has been handled and no
// fetch is in flight.
func (c *Controller) WaitIdle(ctx context.Context) error {
	reply := make(chan struct{})
	if err := c.Post(ctx, idleRequest{reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// CheckReadiness reports ready once a data source has loaded.
func (c *Controller) CheckReadiness(ctx context.Context) error {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !s.Loaded {
		return errors.New("no data source loaded")
	}
	return nil
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case snapshotRequest:
		e.reply <- c.state.Clone()
		return
	case idleRequest:
		if c.pending {
			c.waiters = append(c.waiters, e.reply)
		} else {
			close(e.reply)
		}
		return
	}

	c.metrics.EventsProcessed.WithLabelValues(ev.eventType()).Inc()
	switch e := ev.(type) {
	case SourceSwitch:
		c.switchSource(ctx, e.Source)
	case FetchComplete:
		c.completeFetch(ctx, e)
	case BrushEnd:
		c.brush(ctx, e)
	case CategoryToggle:
		c.toggle(ctx, e.Category)
	case MapMove:
		c.move(e)
	default:
		c.logger.Warn("ignoring unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (c *Controller) switchSource(ctx context.Context, source string) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
	c.state = ResetForSource(c.state, source, c.seq)
	c.pending = true
	c.brushed = nil
	c.clearViews()

	c.logger.Info("loading data source", "source", source, "token", c.seq)

	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.fetch(fetchCtx, source, c.seq)
}

func (c *Controller) fetch(ctx context.Context, source string, token uint64) {
	start := c.clock.Now()
	ds, err := c.fetcher.Fetch(ctx, source)
	c.metrics.FetchDuration.Observe(c.clock.Since(start).Seconds())
	ds.Source = source

	select {
	case c.inbox <- FetchComplete{Token: token, Dataset: ds, Err: err}:
	case <-c.done:
	}
}

func (c *Controller) completeFetch(ctx context.Context, e FetchComplete) {
	if e.Token != c.state.Token {
		c.metrics.Fetches.WithLabelValues("stale").Inc()
		c.logger.Debug("dropping stale fetch result",
			"source", e.Dataset.Source,
			"token", e.Token,
			"current", c.state.Token,
		)
		return
	}
	c.cancel = nil
	defer c.setIdle()
	deferred := c.brushed
	c.brushed = nil

	if e.Err != nil {
		c.metrics.Fetches.WithLabelValues("error").Inc()
		c.logger.Error("fetch data source", "source", e.Dataset.Source, "error", e.Err)
		return
	}
	c.metrics.Fetches.WithLabelValues("success").Inc()
	c.metrics.RecordsParsed.Add(float64(e.Dataset.Stats.Rows))
	c.metrics.MalformedFields.Add(float64(e.Dataset.Stats.MalformedFields))
	if e.Dataset.Stats.UnknownDN > 0 {
		c.logger.Warn("records with unknown DN excluded",
			"source", e.Dataset.Source,
			"count", e.Dataset.Stats.UnknownDN,
		)
	}

	c.state = ApplyDataset(c.state, e.Dataset, c.cfg)
	c.logger.Info("data source loaded",
		"source", c.state.Source,
		"day", len(c.state.Day),
		"night", len(c.state.Night),
		"time_series", c.state.TimeSeries,
	)
	if deferred != nil {
		c.applyBrush(*deferred)
	}

	c.drawHulls()
	c.drawCharts()
	c.redraw(ctx)
}

func (c *Controller) setIdle() {
	c.pending = false
	for _, w := range c.waiters {
		close(w)
	}
	c.waiters = nil
}

func (c *Controller) brush(ctx context.Context, e BrushEnd) {
	if c.pending {
		// Applied once the fetch lands; a later brush replaces it.
		c.brushed = &e
		c.logger.Debug("deferring brush until data is loaded", "source", c.state.Source)
		return
	}
	if !c.state.Loaded {
		c.logger.Debug("ignoring brush before data is loaded")
		return
	}
	if c.applyBrush(e) {
		c.redraw(ctx)
	}
}

// applyBrush moves the window without drawing and reports whether it did.
func (c *Controller) applyBrush(e BrushEnd) bool {
	if !c.state.TimeSeries {
		c.logger.Debug("ignoring brush on dataset without time column", "source", c.state.Source)
		return false
	}
	w, err := BrushWindow(c.state, e.Selection, e.Domain)
	if err != nil {
		c.logger.Warn("invalid brush selection", "error", err)
		return false
	}
	c.state = ApplyBrush(c.state, w)
	c.logger.Debug("brush applied", "start", w.Start, "end", w.End)
	return true
}

func (c *Controller) toggle(ctx context.Context, name string) {
	cat, ok := domain.ParseCategory(name)
	if !ok {
		c.logger.Warn("unknown category toggled", "category", name)
		return
	}
	var on bool
	c.state, on = ToggleCategory(c.state, cat)

	state := "off"
	if on {
		state = "on"
	}
	c.metrics.CategoryToggles.WithLabelValues(cat.String(), state).Inc()

	for _, v := range c.views {
		if !on {
			v.mapView.RemoveMarkersByTag(cat.String())
			continue
		}
		markers := c.categoryMarkers(v.partition, cat)
		c.batch(v.mapView, func() {
			for _, m := range markers {
				v.mapView.AddMarker(m)
			}
		})
	}
	c.updateMarkerGauges()
	c.publish(ctx)
}

func (c *Controller) move(e MapMove) {
	for _, v := range c.views {
		if v.name == e.View {
			v.mapView.SetView(s2.LatLngFromDegrees(e.Lat, e.Lon), e.Zoom)
			return
		}
	}
	c.logger.Warn("move for unknown view", "view", e.View)
}

// redraw rebuilds both views from state. Markers are computed first so the
// clear-and-add inside the batch is as short as possible.
func (c *Controller) redraw(ctx context.Context) {
	start := c.clock.Now()
	for _, v := range c.views {
		markers := c.flowerMarkers(v.partition)
		for _, cat := range c.state.VisibleCategories() {
			markers = append(markers, c.categoryMarkers(v.partition, cat)...)
		}
		c.batch(v.mapView, func() {
			v.mapView.RemoveAllMarkers()
			for _, m := range markers {
				v.mapView.AddMarker(m)
			}
		})
		if v.chart != nil && c.state.Active {
			v.chart.Emphasize(c.state.Window)
		}
	}
	c.metrics.Redraws.Inc()
	c.metrics.RedrawDuration.Observe(c.clock.Since(start).Seconds())
	c.updateMarkerGauges()
	c.publish(ctx)
}

func (c *Controller) batch(m MapView, fn func()) {
	if b, ok := m.(Batcher); ok {
		b.Batch(fn)
		return
	}
	fn()
}

func (c *Controller) clearViews() {
	for _, v := range c.views {
		c.batch(v.mapView, v.mapView.RemoveAllMarkers)
		if o, ok := v.mapView.(OverlaySetter); ok {
			o.SetOverlays(nil)
		}
		if v.chart != nil {
			if err := v.chart.Draw(nil, c.cfg.Categories, 0); err != nil {
				c.logger.Warn("clear chart", "view", v.name, "error", err)
			}
		}
	}
	c.updateMarkerGauges()
}

func (c *Controller) drawHulls() {
	for _, v := range c.views {
		if o, ok := v.mapView.(OverlaySetter); ok {
			o.SetOverlays(mapview.HullOverlays(c.state.Hulls, v.partition))
		}
	}
}

// drawCharts gives both charts the same y-axis so day and night are
// comparable.
func (c *Controller) drawCharts() {
	if !c.state.TimeSeries {
		return
	}
	cats := c.cfg.Categories
	day := domain.Series(c.state.Day, cats)
	night := domain.Series(c.state.Night, cats)
	globalMax := max(domain.GlobalMax(day, cats), domain.GlobalMax(night, cats))

	for _, v := range c.views {
		if v.chart == nil {
			continue
		}
		series := day
		if v.partition == domain.Night {
			series = night
		}
		if err := v.chart.Draw(series, cats, globalMax); err != nil {
			c.logger.Error("draw chart", "view", v.name, "error", err)
		}
	}
}

func (c *Controller) flowerMarkers(p domain.Partition) []mapview.Marker {
	records := WindowRecords(c.state, p)
	markers := make([]mapview.Marker, 0, len(records))
	for _, rec := range records {
		g := glyph.Build(rec.Counts, c.cfg.Categories, GlyphRange(c.state, rec, c.cfg), c.cfg.Glyph)
		markup, err := glyph.Markup(g, c.catalog.Color)
		if err != nil {
			c.logger.Warn("render glyph", "cluster", rec.Cluster, "error", err)
			continue
		}
		markers = append(markers, mapview.NewMarker(rec.Lat, rec.Lon, markup, mapview.FlowerTag, rec.Cluster))
	}
	return markers
}

func (c *Controller) categoryMarkers(p domain.Partition, cat domain.Category) []mapview.Marker {
	style := c.catalog.Style(cat)
	markup, err := glyph.DotMarkup(c.cfg.DotRadius, style.Color)
	if err != nil {
		c.logger.Warn("render category dot", "category", cat, "error", err)
		return nil
	}
	records := CategoryRecords(c.state, p, cat, style.Threshold)
	markers := make([]mapview.Marker, 0, len(records))
	for _, rec := range records {
		markers = append(markers, mapview.NewMarker(rec.Lat, rec.Lon, markup, cat.String(), rec.Cluster))
	}
	return markers
}

func (c *Controller) markerCount(p domain.Partition) int {
	n := len(WindowRecords(c.state, p))
	for _, cat := range c.state.VisibleCategories() {
		n += len(CategoryRecords(c.state, p, cat, c.catalog.Threshold(cat)))
	}
	return n
}

func (c *Controller) updateMarkerGauges() {
	for _, v := range c.views {
		c.metrics.MarkersRendered.WithLabelValues(v.name).Set(float64(c.markerCount(v.partition)))
	}
}

func (c *Controller) publish(ctx context.Context) {
	if c.sink == nil {
		return
	}
	c.frameSeq++
	f := Frame{
		Session:      c.session,
		Seq:          c.frameSeq,
		Source:       c.state.Source,
		DayMarkers:   c.markerCount(domain.Day),
		NightMarkers: c.markerCount(domain.Night),
		Visible:      []string{},
		RenderedAt:   c.clock.Now().UnixMilli(),
	}
	if c.state.TimeSeries && c.state.Active {
		w := c.state.Window
		f.Window = &w
	}
	for _, cat := range c.state.VisibleCategories() {
		f.Visible = append(f.Visible, cat.String())
	}
	if err := c.sink.PublishFrame(ctx, f); err != nil {
		c.logger.Warn("publish frame", "seq", f.Seq, "error", err)
		return
	}
	c.metrics.FramesPublished.Inc()
}
