package plugins

import (
	"container/heap"

	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// path is one shortest-path result: the node sequence, the edge
// sequence connecting them 1:1 with the gaps between nodes, and the
// total weight.
type path struct {
	nodes  []dataset.NodeID
	edges  []dataset.EdgeID
	weight uint32
}

// snapToNode finds the nearest edge to p and returns whichever of that
// edge's two endpoints is closer to the snapped point, for use as a
// Dijkstra source/target. This is a simplification of the original
// engine's phantom-node machinery (which can start a search mid-edge);
// starting/ending at the nearer real vertex keeps the dataset/facade
// contract to plain node and edge ids.
func snapToNode(f facade.Facade, p geo.Point) (dataset.NodeID, bool) {
	edgeID, snapped, _, ok := f.NearestEdge(p)
	if !ok {
		return 0, false
	}
	from, to, ok := f.EdgeEndpoints(edgeID)
	if !ok {
		return 0, false
	}
	fromPt, okFrom := f.Coordinate(from)
	toPt, okTo := f.Coordinate(to)
	switch {
	case okFrom && okTo:
		if geo.HaversineMeters(snapped, fromPt) <= geo.HaversineMeters(snapped, toPt) {
			return from, true
		}
		return to, true
	case okFrom:
		return from, true
	case okTo:
		return to, true
	default:
		return 0, false
	}
}

// pqItem is one entry of the Dijkstra priority queue.
type pqItem struct {
	node dataset.NodeID
	dist uint32
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// shortestPath runs Dijkstra's algorithm from source to target over
// f.Adjacency, returning false if target is unreachable. Edge weights
// are read once per relaxation rather than cached, matching the
// facade's read-only, lock-free accessor contract.
func shortestPath(f facade.Facade, source, target dataset.NodeID) (path, bool) {
	dist := map[dataset.NodeID]uint32{source: 0}
	prevNode := map[dataset.NodeID]dataset.NodeID{}
	prevEdge := map[dataset.NodeID]dataset.EdgeID{}
	visited := map[dataset.NodeID]bool{}

	pq := &priorityQueue{{node: source, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == target {
			break
		}

		for _, edge := range f.Adjacency(cur.node) {
			if visited[edge.Target] {
				continue
			}
			next := cur.dist + edge.Weight
			if existing, ok := dist[edge.Target]; !ok || next < existing {
				dist[edge.Target] = next
				prevNode[edge.Target] = cur.node
				prevEdge[edge.Target] = edge.EdgeID
				heap.Push(pq, pqItem{node: edge.Target, dist: next})
			}
		}
	}

	finalDist, ok := dist[target]
	if !ok {
		return path{}, false
	}
	if source == target {
		return path{nodes: []dataset.NodeID{source}}, true
	}

	var nodes []dataset.NodeID
	var edges []dataset.EdgeID
	for n := target; ; {
		nodes = append([]dataset.NodeID{n}, nodes...)
		if n == source {
			break
		}
		edges = append([]dataset.EdgeID{prevEdge[n]}, edges...)
		n = prevNode[n]
	}
	return path{nodes: nodes, edges: edges, weight: finalDist}, true
}

// stitchGeometry concatenates the geometry of each edge in a path,
// dropping the first point of every edge after the first so shared
// join vertices aren't duplicated.
func stitchGeometry(f facade.Facade, edges []dataset.EdgeID) geo.LineString {
	var out geo.LineString
	for i, e := range edges {
		seg, ok := f.Geometry(e)
		if !ok {
			continue
		}
		if i > 0 && len(seg) > 0 {
			seg = seg[1:]
		}
		out = append(out, seg...)
	}
	return out
}
