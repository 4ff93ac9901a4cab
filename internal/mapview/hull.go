package mapview

import (
	"slices"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/golang/geo/s2"
)

// HullOverlays groups the vertices of one partition by cluster into outline
// rings, in ascending cluster order. Vertex order within a cluster is kept.
func HullOverlays(vertices []domain.HullVertex, p domain.Partition) []Overlay {
	rings := map[int][]s2.LatLng{}
	var clusters []int
	for _, v := range vertices {
		if v.Partition != p {
			continue
		}
		if _, ok := rings[v.Cluster]; !ok {
			clusters = append(clusters, v.Cluster)
		}
		rings[v.Cluster] = append(rings[v.Cluster], s2.LatLngFromDegrees(v.Lat, v.Lon))
	}
	slices.Sort(clusters)

	out := make([]Overlay, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, Overlay{Cluster: c, Ring: rings[c], Style: HullStyle})
	}
	return out
}
