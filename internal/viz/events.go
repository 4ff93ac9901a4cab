package viz

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/crime-flowers/internal/domain"
)

// Event is anything the controller loop reacts to.
type Event interface {
	eventType() string
}

// SourceSwitch asks for a different data source to be loaded.
type SourceSwitch struct {
	Source string
}

// BrushEnd carries a finished brush selection. Selection is in plot-area
// pixels (see Config.ChartWidth) unless Domain is set, in which case it is
// already in bucket-time units.
type BrushEnd struct {
	Selection [2]float64
	Domain    bool
}

// CategoryToggle flips one category overlay on both views.
type CategoryToggle struct {
	Category string
}

// MapMove pans or zooms one of the paired views. View is "day" or "night".
type MapMove struct {
	View string
	Lat  float64
	Lon  float64
	Zoom float64
}

// FetchComplete is posted by the fetch goroutine when a load finishes.
type FetchComplete struct {
	Token   uint64
	Dataset domain.Dataset
	Err     error
}

// Frame summarizes one completed redraw.
type Frame struct {
	Session      string             `json:"session"`
	Seq          uint64             `json:"seq"`
	Source       string             `json:"source"`
	Window       *domain.TimeWindow `json:"window,omitempty"`
	DayMarkers   int                `json:"day_markers"`
	NightMarkers int                `json:"night_markers"`
	Visible      []string           `json:"visible"`
	RenderedAt   int64              `json:"rendered_at"`
}

type snapshotRequest struct{ reply chan State }

type idleRequest struct{ reply chan struct{} }

func (SourceSwitch) eventType() string    { return "source" }
func (BrushEnd) eventType() string        { return "brush" }
func (CategoryToggle) eventType() string  { return "toggle" }
func (MapMove) eventType() string         { return "move" }
func (FetchComplete) eventType() string   { return "fetch" }
func (snapshotRequest) eventType() string { return "snapshot" }
func (idleRequest) eventType() string     { return "idle" }

// EventType returns the wire type tag of ev, as written by EncodeEvent.
func EventType(ev Event) string { return ev.eventType() }

// wireEvent is the JSON form used by replay scripts and the Kafka event topic.
type wireEvent struct {
	Type      string    `json:"type"`
	Source    string    `json:"source,omitempty"`
	Selection []float64 `json:"selection,omitempty"`
	Domain    bool      `json:"domain,omitempty"`
	Category  string    `json:"category,omitempty"`
	View      string    `json:"view,omitempty"`
	Lat       float64   `json:"lat,omitempty"`
	Lon       float64   `json:"lon,omitempty"`
	Zoom      float64   `json:"zoom,omitempty"`
}

// DecodeEvent parses one JSON-encoded user event.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	switch w.Type {
	case "source":
		if w.Source == "" {
			return nil, fmt.Errorf("source event without source id")
		}
		return SourceSwitch{Source: w.Source}, nil
	case "brush":
		if len(w.Selection) != 2 {
			return nil, fmt.Errorf("brush selection needs 2 values, got %d", len(w.Selection))
		}
		return BrushEnd{Selection: [2]float64{w.Selection[0], w.Selection[1]}, Domain: w.Domain}, nil
	case "toggle":
		if w.Category == "" {
			return nil, fmt.Errorf("toggle event without category")
		}
		return CategoryToggle{Category: w.Category}, nil
	case "move":
		if w.View != "day" && w.View != "night" {
			return nil, fmt.Errorf("move event for unknown view %q", w.View)
		}
		return MapMove{View: w.View, Lat: w.Lat, Lon: w.Lon, Zoom: w.Zoom}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", w.Type)
	}
}

// EncodeEvent is the inverse of DecodeEvent for the user-facing event kinds.
func EncodeEvent(ev Event) ([]byte, error) {
	w := wireEvent{Type: ev.eventType()}
	switch e := ev.(type) {
	case SourceSwitch:
		w.Source = e.Source
	case BrushEnd:
		w.Selection = e.Selection[:]
		w.Domain = e.Domain
	case CategoryToggle:
		w.Category = e.Category
	case MapMove:
		w.View, w.Lat, w.Lon, w.Zoom = e.View, e.Lat, e.Lon, e.Zoom
	default:
		return nil, fmt.Errorf("event %q is not encodable", w.Type)
	}
	return json.Marshal(w)
}
