package mapview

import (
	"fmt"
	"io"

	geojson "github.com/paulmach/go.geojson"
)

// FeatureCollection exports overlays (as polygons) followed by markers (as
// points). GeoJSON positions are [lon, lat].
func (l *Layer) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, o := range l.Overlays() {
		if len(o.Ring) == 0 {
			continue
		}
		ring := make([][]float64, 0, len(o.Ring)+1)
		for _, ll := range o.Ring {
			ring = append(ring, []float64{ll.Lng.Degrees(), ll.Lat.Degrees()})
		}
		ring = append(ring, ring[0])

		f := geojson.NewPolygonFeature([][][]float64{ring})
		f.SetProperty("kind", "hull")
		f.SetProperty("view", l.name)
		f.SetProperty("cluster", o.Cluster)
		f.SetProperty("color", o.Style.Color)
		f.SetProperty("weight", o.Style.Weight)
		f.SetProperty("opacity", o.Style.Opacity)
		f.SetProperty("dashArray", o.Style.DashArray)
		fc.AddFeature(f)
	}

	for _, m := range l.Markers() {
		f := geojson.NewPointFeature([]float64{m.Position.Lng.Degrees(), m.Position.Lat.Degrees()})
		f.SetProperty("kind", "marker")
		f.SetProperty("view", l.name)
		f.SetProperty("tag", m.Tag)
		f.SetProperty("cluster", m.Cluster)
		f.SetProperty("html", m.Markup)
		fc.AddFeature(f)
	}
	return fc
}

// WriteGeoJSON writes the feature collection to w.
func (l *Layer) WriteGeoJSON(w io.Writer) error {
	data, err := l.FeatureCollection().MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal %s view: %w", l.name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s view: %w", l.name, err)
	}
	return nil
}
