package dataset

import (
	"math"
	"sort"

	"github.com/osrm-go/routingd/internal/geo"
)

// spatialIndex is a uniform-grid nearest-edge index: a stand-in for
// the R-tree the dispatch specification's facade contract names (no
// R-tree library is available anywhere in the reference corpus this
// package is grounded on — see DESIGN.md's "internal/dataset/
// spatialindex.go" entry). A grid cell lookup plus a ring-expanding
// search gives the same asymptotic behavior an R-tree gives for
// roughly uniform road-network density.
type spatialIndex struct {
	cellSize float64 // degrees, picked so a cell holds a handful of edges
	cells    map[cellKey][]EdgeID
}

type cellKey struct {
	x, y int32
}

// buildSpatialIndex indexes every edge by the grid cell containing its
// bounding-box center.
func buildSpatialIndex(edges []edgeRecord, geometry []geo.Point) *spatialIndex {
	const cellSize = 0.01 // ~1.1km at the equator

	idx := &spatialIndex{cellSize: cellSize, cells: make(map[cellKey][]EdgeID)}
	for id, e := range edges {
		if e.GeomTo <= e.GeomFrom || int(e.GeomTo) > len(geometry) {
			continue
		}
		box := geo.BoxOf(geo.LineString(geometry[e.GeomFrom:e.GeomTo]))
		cx := (box.MinLon + box.MaxLon) / 2
		cy := (box.MinLat + box.MaxLat) / 2
		k := idx.keyOf(cx, cy)
		idx.cells[k] = append(idx.cells[k], EdgeID(id))
	}
	return idx
}

func (idx *spatialIndex) keyOf(lon, lat float64) cellKey {
	return cellKey{
		x: int32(math.Floor(lon / idx.cellSize)),
		y: int32(math.Floor(lat / idx.cellSize)),
	}
}

// candidatesNear collects every edge in rings of grid cells around p,
// expanding the ring until at least `want` candidates are found or the
// search has expanded past a sane bound.
func (idx *spatialIndex) candidatesNear(p geo.Point, want int) []EdgeID {
	center := idx.keyOf(p.Lon, p.Lat)

	var out []EdgeID
	seen := make(map[EdgeID]struct{})
	for radius := int32(0); radius <= 50; radius++ {
		for dx := -radius; dx <= radius; dx++ {
			for dy := -radius; dy <= radius; dy++ {
				// Only visit the ring's perimeter once radius has grown
				// past 0; radius 0 is just the center cell.
				if radius > 0 && abs32(dx) != radius && abs32(dy) != radius {
					continue
				}
				k := cellKey{x: center.x + dx, y: center.y + dy}
				for _, e := range idx.cells[k] {
					if _, dup := seen[e]; dup {
						continue
					}
					seen[e] = struct{}{}
					out = append(out, e)
				}
			}
		}
		if len(out) >= want {
			break
		}
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (idx *spatialIndex) nearest(d *Dataset, p geo.Point) (EdgeID, geo.Point, float64, bool) {
	results := idx.nearestN(d, p, 1)
	if len(results) == 0 {
		return 0, geo.Point{}, 0, false
	}
	return results[0].Edge, results[0].Point, results[0].Distance, true
}

func (idx *spatialIndex) nearestN(d *Dataset, p geo.Point, n int) []NearestCandidate {
	if n <= 0 {
		n = 1
	}
	candidates := idx.candidatesNear(p, n)

	results := make([]NearestCandidate, 0, len(candidates))
	for _, eid := range candidates {
		geomLS, ok := d.Geometry(eid)
		if !ok || len(geomLS) < 2 {
			continue
		}
		best := math.Inf(1)
		var bestPt geo.Point
		for i := 0; i+1 < len(geomLS); i++ {
			proj, dist := geo.ClosestPointOnSegment(p, geomLS[i], geomLS[i+1])
			if dist < best {
				best = dist
				bestPt = proj
			}
		}
		results = append(results, NearestCandidate{Edge: eid, Point: bestPt, Distance: best})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > n {
		results = results[:n]
	}
	return results
}
