package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crime-flowers/internal/chart"
	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxEventBytes = 64 << 10

// Controller is the subset of viz.Controller the server drives.
type Controller interface {
	sharedobs.ReadinessChecker
	Post(ctx context.Context, ev viz.Event) error
	WaitIdle(ctx context.Context) error
	Snapshot(ctx context.Context) (viz.State, error)
}

// GeoJSONWriter exports a map view.
type GeoJSONWriter interface {
	WriteGeoJSON(w io.Writer) error
}

// SVGRenderer exports a chart.
type SVGRenderer interface {
	Render(w io.Writer) error
}

// Views maps view names ("day", "night") to their exporters.
type Views struct {
	Maps   map[string]GeoJSONWriter
	Charts map[string]SVGRenderer
}

// Server exposes health, readiness and metrics endpoints, plus the current
// map views and charts and an endpoint for posting user events.
type Server struct {
	httpServer *http.Server
	ctrl       Controller
	views      Views
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /state, /events, /views/{name} and /charts/{name} routes.
func NewServer(addr string, ctrl Controller, views Views, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ctrl:   ctrl,
		views:  views,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ctrl))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /events", s.handleEvent)
	mux.HandleFunc("GET /views/{name}", s.handleView)
	mux.HandleFunc("GET /charts/{name}", s.handleChart)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type stateResponse struct {
	Source     string             `json:"source"`
	Token      uint64             `json:"token"`
	Loaded     bool               `json:"loaded"`
	TimeSeries bool               `json:"time_series"`
	Window     *domain.TimeWindow `json:"window,omitempty"`
	Visible    []string           `json:"visible"`
	DayCount   int                `json:"day_records"`
	NightCount int                `json:"night_records"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	resp := stateResponse{
		Source:     st.Source,
		Token:      st.Token,
		Loaded:     st.Loaded,
		TimeSeries: st.TimeSeries,
		Visible:    []string{},
		DayCount:   len(st.Day),
		NightCount: len(st.Night),
	}
	if st.TimeSeries && st.Active {
		win := st.Window
		resp.Window = &win
	}
	for _, c := range st.VisibleCategories() {
		resp.Visible = append(resp.Visible, c.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvent accepts one event in the JSON wire format. With ?wait=true the
// response is sent after the controller has handled it and any fetch it
// started has finished.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	ev, err := viz.DecodeEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.Post(r.Context(), ev); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if r.URL.Query().Get("wait") == "true" {
		if err := s.ctrl.WaitIdle(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	view, ok := s.views.Maps[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown view "+name))
		return
	}
	var buf bytes.Buffer
	if err := view.WriteGeoJSON(&buf); err != nil {
		s.logger.Error("export view failed", "view", name, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	c, ok := s.views.Charts[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown chart "+name))
		return
	}
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.Error("render chart failed", "chart", name, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
