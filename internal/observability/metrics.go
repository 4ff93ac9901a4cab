package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crime_flowers"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// visualization pipeline.
type Metrics struct {
	RecordsParsed   prometheus.Counter
	MalformedFields prometheus.Counter
	ControllerUp    prometheus.Gauge

	// Fetch metrics.
	Fetches       *prometheus.CounterVec // labels: outcome={success,error,stale}
	FetchDuration prometheus.Histogram
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Render metrics.
	Redraws         prometheus.Counter
	RedrawDuration  prometheus.Histogram
	MarkersRendered *prometheus.GaugeVec   // labels: view={day,night}
	CategoryToggles *prometheus.CounterVec // labels: category, state={on,off}

	// Event plumbing.
	EventsProcessed   *prometheus.CounterVec // labels: type
	EventSourceErrors prometheus.Counter
	FramesPublished   prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsParsed,
		m.MalformedFields,
		m.ControllerUp,
		m.Fetches,
		m.FetchDuration,
		m.FetchCache,
		m.Redraws,
		m.RedrawDuration,
		m.MarkersRendered,
		m.CategoryToggles,
		m.EventsProcessed,
		m.EventSourceErrors,
		m.FramesPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Total incident records parsed from data sources.",
		}),
		MalformedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_fields_total",
			Help:      "Numeric fields that failed to parse and were recorded as NaN.",
		}),
		ControllerUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_running",
			Help:      "1 when the controller event loop is active, 0 when shut down.",
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Data source fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a data source fetch including parsing.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		Redraws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redraws_total",
			Help:      "Total full map redraws.",
		}),
		RedrawDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redraw_duration_seconds",
			Help:      "Duration of a full redraw of both views.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		MarkersRendered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markers_rendered",
			Help:      "Markers currently on each view.",
		}, []string{"view"}),
		CategoryToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_toggles_total",
			Help:      "Category overlay toggles by category and new state.",
		}, []string{"category", "state"}),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Controller events handled by type.",
		}, []string{"type"}),
		EventSourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_source_errors_total",
			Help:      "Failures reading from the external event source.",
		}),
		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_published_total",
			Help:      "Frame summaries written to the frame sink.",
		}),
	}
}
