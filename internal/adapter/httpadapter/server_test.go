package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/couchcryptid/crime-flowers/internal/adapter/httpadapter"
	"github.com/couchcryptid/crime-flowers/internal/chart"
	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/mapview"
	"github.com/couchcryptid/crime-flowers/internal/viz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockController struct {
	mu       sync.Mutex
	readyErr error
	postErr  error
	posted   []viz.Event
	waited   int
	state    viz.State
}

func (m *mockController) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockController) Post(_ context.Context, ev viz.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return m.postErr
	}
	m.posted = append(m.posted, ev)
	return nil
}

func (m *mockController) WaitIdle(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waited++
	return nil
}

func (m *mockController) Snapshot(_ context.Context) (viz.State, error) {
	return m.state, nil
}

func color(domain.Category) string { return "#123456" }

func newTestServer(ctrl *mockController) (*httpadapter.Server, *mapview.Layer, *chart.SVGChart) {
	day := mapview.NewLayer("day", "", viz.DefaultCenter, viz.DefaultZoom)
	dayChart := chart.New("day", 400, 200, color)
	srv := httpadapter.NewServer(":0", ctrl, httpadapter.Views{
		Maps:   map[string]httpadapter.GeoJSONWriter{"day": day},
		Charts: map[string]httpadapter.SVGRenderer{"day": dayChart},
	}, slog.Default())
	return srv, day, dayChart
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _, _ := newTestServer(&mockController{})
	rec := do(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _, _ := newTestServer(&mockController{})
	rec := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _, _ := newTestServer(&mockController{readyErr: errors.New("no data source loaded")})
	rec := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(&mockController{})
	rec := do(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPostEvent(t *testing.T) {
	ctrl := &mockController{}
	srv, _, _ := newTestServer(ctrl)

	rec := do(srv, http.MethodPost, "/events", `{"type":"toggle","category":"drug"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ctrl.posted, 1)
	assert.Equal(t, viz.CategoryToggle{Category: "drug"}, ctrl.posted[0])
	assert.Zero(t, ctrl.waited)
}

func TestPostEvent_Wait(t *testing.T) {
	ctrl := &mockController{}
	srv, _, _ := newTestServer(ctrl)

	rec := do(srv, http.MethodPost, "/events?wait=true", `{"type":"source","source":"dn"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ctrl.waited)
}

func TestPostEvent_Invalid(t *testing.T) {
	ctrl := &mockController{}
	srv, _, _ := newTestServer(ctrl)

	rec := do(srv, http.MethodPost, "/events", `{"type":"explode"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ctrl.posted)
}

func TestPostEvent_ControllerStopped(t *testing.T) {
	srv, _, _ := newTestServer(&mockController{postErr: viz.ErrStopped})
	rec := do(srv, http.MethodPost, "/events", `{"type":"toggle","category":"drug"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestState(t *testing.T) {
	ctrl := &mockController{state: viz.State{
		Source:     "dn_time",
		Token:      3,
		Loaded:     true,
		TimeSeries: true,
		Active:     true,
		Window:     domain.TimeWindow{Start: 5, End: 9},
		Visible:    map[domain.Category]bool{domain.Drug: true},
	}}
	srv, _, _ := newTestServer(ctrl)

	rec := do(srv, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Source  string             `json:"source"`
		Token   uint64             `json:"token"`
		Window  *domain.TimeWindow `json:"window"`
		Visible []string           `json:"visible"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "dn_time", body.Source)
	assert.Equal(t, uint64(3), body.Token)
	require.NotNil(t, body.Window)
	assert.Equal(t, domain.TimeWindow{Start: 5, End: 9}, *body.Window)
	assert.Equal(t, []string{domain.Drug.String()}, body.Visible)
}

func TestView(t *testing.T) {
	srv, day, _ := newTestServer(&mockController{})
	day.AddMarker(mapview.NewMarker(41.8, -87.6, "<svg/>", mapview.FlowerTag, 2))

	rec := do(srv, http.MethodGet, "/views/day", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, mapview.FlowerTag, fc.Features[0].Properties["tag"])
}

func TestView_Unknown(t *testing.T) {
	srv, _, _ := newTestServer(&mockController{})
	rec := do(srv, http.MethodGet, "/views/dusk", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChart(t *testing.T) {
	srv, _, dayChart := newTestServer(&mockController{})

	rec := do(srv, http.MethodGet, "/charts/day", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no data drawn yet")

	var counts domain.Counts
	counts[domain.Drug] = 4
	require.NoError(t, dayChart.Draw([]domain.AggregatedBucket{
		{Time: 1, Counts: counts},
		{Time: 2, Counts: counts},
	}, []domain.Category{domain.Drug}, 4))

	rec = do(srv, http.MethodGet, "/charts/day", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}
