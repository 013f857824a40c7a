package plugins

import (
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

var _ facade.Facade = (*fakeFacade)(nil)

// fakeFacade is an in-memory stand-in for facade.Facade, used so
// plugin tests exercise the Dijkstra/snapping/stitching logic directly
// against a known-small graph without needing real mapped table files.
type fakeFacade struct {
	generation    uint64
	coords        map[dataset.NodeID]geo.Point
	adjacency     map[dataset.NodeID][]dataset.Edge
	edgeEndpoints map[dataset.EdgeID][2]dataset.NodeID
	edgeWeight    map[dataset.EdgeID]uint32
	geometry      map[dataset.EdgeID]geo.LineString
	edgeNames     map[dataset.EdgeID]string

	// nearestOf maps a query point (by exact match) to the edge/point/
	// distance NearestEdge should report; nearestNOf does the same for
	// NearestEdges.
	nearestOf  map[geo.Point]nearestHit
	nearestNOf map[geo.Point][]dataset.NearestCandidate
}

type nearestHit struct {
	edge   dataset.EdgeID
	point  geo.Point
	dist   float64
	exists bool
}

func (f *fakeFacade) Generation() uint64 { return f.generation }

func (f *fakeFacade) Adjacency(n dataset.NodeID) []dataset.Edge { return f.adjacency[n] }

func (f *fakeFacade) EdgeWeight(e dataset.EdgeID) (uint32, bool) {
	w, ok := f.edgeWeight[e]
	return w, ok
}

func (f *fakeFacade) EdgeEndpoints(e dataset.EdgeID) (dataset.NodeID, dataset.NodeID, bool) {
	ends, ok := f.edgeEndpoints[e]
	if !ok {
		return 0, 0, false
	}
	return ends[0], ends[1], true
}

func (f *fakeFacade) Geometry(e dataset.EdgeID) (geo.LineString, bool) {
	g, ok := f.geometry[e]
	return g, ok
}

func (f *fakeFacade) Coordinate(n dataset.NodeID) (geo.Point, bool) {
	p, ok := f.coords[n]
	return p, ok
}

func (f *fakeFacade) Name(id uint32) (string, bool) { return "", false }

func (f *fakeFacade) EdgeName(e dataset.EdgeID) (string, bool) {
	n, ok := f.edgeNames[e]
	return n, ok
}

func (f *fakeFacade) NearestEdge(p geo.Point) (dataset.EdgeID, geo.Point, float64, bool) {
	hit, ok := f.nearestOf[p]
	if !ok || !hit.exists {
		return 0, geo.Point{}, 0, false
	}
	return hit.edge, hit.point, hit.dist, true
}

func (f *fakeFacade) NearestEdges(p geo.Point, n int) []dataset.NearestCandidate {
	candidates := f.nearestNOf[p]
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}

// newLineFixture builds a 4-node line graph A-B-C-D with unit-spaced
// coordinates along the equator and a forward and a backward edge per
// segment, each edge's geometry equal to its two endpoint coordinates.
// NearestEdge/NearestEdges are wired so that querying exactly node i's
// coordinate snaps to the forward edge leaving that node (or, for the
// last node, the backward edge leaving it).
func newLineFixture() *fakeFacade {
	const n = 4
	f := &fakeFacade{
		generation:    1,
		coords:        map[dataset.NodeID]geo.Point{},
		adjacency:     map[dataset.NodeID][]dataset.Edge{},
		edgeEndpoints: map[dataset.EdgeID][2]dataset.NodeID{},
		edgeWeight:    map[dataset.EdgeID]uint32{},
		geometry:      map[dataset.EdgeID]geo.LineString{},
		edgeNames:     map[dataset.EdgeID]string{},
		nearestOf:     map[geo.Point]nearestHit{},
		nearestNOf:    map[geo.Point][]dataset.NearestCandidate{},
	}

	points := make([]geo.Point, n)
	for i := 0; i < n; i++ {
		points[i] = geo.Point{Lon: float64(i), Lat: 0}
		f.coords[dataset.NodeID(i)] = points[i]
	}

	// Each segment gets a forward and a backward edge, so the fixture
	// behaves like a bidirectional road network rather than a one-way
	// line (the table/trip plugins need every node mutually reachable).
	for i := 0; i < n-1; i++ {
		from, to := dataset.NodeID(i), dataset.NodeID(i+1)
		weight := uint32(100)

		forward := dataset.EdgeID(2 * i)
		f.adjacency[from] = append(f.adjacency[from], dataset.Edge{Target: to, Weight: weight, EdgeID: forward})
		f.edgeEndpoints[forward] = [2]dataset.NodeID{from, to}
		f.edgeWeight[forward] = weight
		f.geometry[forward] = geo.LineString{points[i], points[i+1]}
		f.edgeNames[forward] = "Segment"

		backward := dataset.EdgeID(2*i + 1)
		f.adjacency[to] = append(f.adjacency[to], dataset.Edge{Target: from, Weight: weight, EdgeID: backward})
		f.edgeEndpoints[backward] = [2]dataset.NodeID{to, from}
		f.edgeWeight[backward] = weight
		f.geometry[backward] = geo.LineString{points[i+1], points[i]}
		f.edgeNames[backward] = "Segment"

		f.nearestOf[points[i]] = nearestHit{edge: forward, point: points[i], dist: 0, exists: true}
		f.nearestNOf[points[i]] = []dataset.NearestCandidate{{Edge: forward, Point: points[i], Distance: 0}}
	}
	lastBackward := dataset.EdgeID(2*(n-2) + 1)
	f.nearestOf[points[n-1]] = nearestHit{edge: lastBackward, point: points[n-1], dist: 0, exists: true}
	f.nearestNOf[points[n-1]] = []dataset.NearestCandidate{{Edge: lastBackward, Point: points[n-1], Distance: 0}}

	return f
}
