// Package mapview is an in-memory map view: it tracks markers, overlays and
// the current center/zoom, notifies move listeners, and exports its contents
// as GeoJSON for any web map to draw.
package mapview

import (
	"sync"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// FlowerTag marks glyph markers added by a time-window redraw.
const FlowerTag = "flower"

// Marker is one icon on the map.
type Marker struct {
	Position s2.LatLng
	Markup   string
	Tag      string
	Cluster  int
}

// NewMarker builds a marker from degrees.
func NewMarker(lat, lon float64, markup, tag string, cluster int) Marker {
	return Marker{
		Position: s2.LatLngFromDegrees(lat, lon),
		Markup:   markup,
		Tag:      tag,
		Cluster:  cluster,
	}
}

// Overlay is a closed outline drawn under the markers.
type Overlay struct {
	Cluster int
	Ring    []s2.LatLng
	Style   OverlayStyle
}

// OverlayStyle mirrors the dashed cluster outline styling.
type OverlayStyle struct {
	Color     string  `json:"color"`
	Weight    float64 `json:"weight"`
	Opacity   float64 `json:"opacity"`
	DashArray string  `json:"dashArray"`
}

// HullStyle is the default cluster outline style.
var HullStyle = OverlayStyle{Color: "white", Weight: 2, Opacity: 0.3, DashArray: "5, 5"}

// MoveFunc is called after the view center or zoom changes.
type MoveFunc func(center s2.LatLng, zoom float64)

// Layer is a thread-safe map view. Mutations are expected from a single
// owner goroutine; readers may run concurrently and never observe a partial
// Batch.
type Layer struct {
	name    string
	tileURL string

	// frame is held for writing for the duration of a Batch and for reading by
	// snapshot readers.
	frame sync.RWMutex

	mu        sync.Mutex
	markers   []Marker
	overlays  []Overlay
	center    s2.LatLng
	zoom      float64
	listeners []MoveFunc
}

// NewLayer creates an empty view.
func NewLayer(name, tileURL string, center s2.LatLng, zoom float64) *Layer {
	return &Layer{name: name, tileURL: tileURL, center: center, zoom: zoom}
}

// Name identifies the view ("day" or "night").
func (l *Layer) Name() string { return l.name }

// TileURL is the tile template the view is styled with.
func (l *Layer) TileURL() string { return l.tileURL }

// AddMarker appends a marker.
func (l *Layer) AddMarker(m Marker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = append(l.markers, m)
}

// RemoveAllMarkers clears every marker regardless of tag.
func (l *Layer) RemoveAllMarkers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = nil
}

// RemoveMarkersByTag removes only markers carrying tag.
func (l *Layer) RemoveMarkersByTag(tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.markers[:0]
	for _, m := range l.markers {
		if m.Tag != tag {
			kept = append(kept, m)
		}
	}
	clear(l.markers[len(kept):])
	l.markers = kept
}

// SetOverlays replaces all overlays.
func (l *Layer) SetOverlays(overlays []Overlay) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overlays = append([]Overlay(nil), overlays...)
}

// SetView moves the view and notifies listeners. Setting the current
// position again is a no-op, which also ends sync ping-pong between paired
// views.
func (l *Layer) SetView(center s2.LatLng, zoom float64) {
	l.mu.Lock()
	if sameView(l.center, center) && l.zoom == zoom {
		l.mu.Unlock()
		return
	}
	l.center = center
	l.zoom = zoom
	listeners := append([]MoveFunc(nil), l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(center, zoom)
	}
}

// OnMove registers a listener for view changes.
func (l *Layer) OnMove(fn MoveFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Batch runs fn with snapshot readers held off, so a clear followed by
// re-adds is observed as one change.
func (l *Layer) Batch(fn func()) {
	l.frame.Lock()
	defer l.frame.Unlock()
	fn()
}

// View returns the current center and zoom.
func (l *Layer) View() (s2.LatLng, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.center, l.zoom
}

// Markers returns a copy of the current markers.
func (l *Layer) Markers() []Marker {
	l.frame.RLock()
	defer l.frame.RUnlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Marker(nil), l.markers...)
}

// Overlays returns a copy of the current overlays.
func (l *Layer) Overlays() []Overlay {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Overlay(nil), l.overlays...)
}

// CountByTag returns the number of markers per tag.
func (l *Layer) CountByTag() map[string]int {
	counts := map[string]int{}
	for _, m := range l.Markers() {
		counts[m.Tag]++
	}
	return counts
}

// Bounds is the smallest lat/lng rectangle covering every marker.
func (l *Layer) Bounds() s2.Rect {
	rb := s2.NewRectBounder()
	for _, m := range l.Markers() {
		rb.AddPoint(s2.PointFromLatLng(m.Position))
	}
	return rb.RectBound()
}

// viewEpsilon treats centers closer than ~1cm as the same position, so
// degree/radian round-trips between views do not retrigger moves.
var viewEpsilon = s1.Angle(1e-9)

func sameView(a, b s2.LatLng) bool {
	return a.Distance(b) <= viewEpsilon
}
