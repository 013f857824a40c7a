// Package dataset implements the opaque, immutable road-network
// dataset the facade exposes: node coordinates, weighted adjacency,
// edge geometry, the name table, and a spatial index for nearest-edge
// lookups. Turn restrictions/penalties are a narrowing from the
// original engine's data model (see SPEC_FULL.md's Open Questions,
// decision 3).
//
// A Dataset is built once, either by mapping local table files
// (LoadLocal) or by mapping one of the two shared-memory regions
// (LoadRegion), and never mutated afterward — every accessor method is
// safe for concurrent callers holding a valid Dataset reference.
package dataset

import (
	"fmt"

	"github.com/osrm-go/routingd/internal/geo"
)

// NodeID indexes the node-coordinate table.
type NodeID uint32

// EdgeID indexes the edge table (and, 1:1, the geometry table).
type EdgeID uint32

// Edge is one directed adjacency-list entry: travel from the owning
// node across edge EdgeID to node Target at the given Weight (an
// abstract cost unit, e.g. deciseconds of travel time).
type Edge struct {
	Target NodeID
	Weight uint32
	EdgeID EdgeID
}

// edgeRecord is the on-disk/in-memory shape of one row of the edge
// table, before it is grouped into per-source adjacency lists.
type edgeRecord struct {
	Source   NodeID
	Target   NodeID
	Weight   uint32
	NameID   uint32
	GeomFrom uint32
	GeomTo   uint32 // [GeomFrom, GeomTo) indexes into the geometry point array
}

// Dataset is the immutable, in-memory road network. It is built once
// by LoadLocal or LoadRegion and read concurrently thereafter.
type Dataset struct {
	generation uint64

	coordinates []geo.Point   // indexed by NodeID
	edges       []edgeRecord  // indexed by EdgeID
	adjacency   [][]Edge      // indexed by NodeID, built from edges at load time
	geometry    []geo.Point   // flat point pool, sliced per edge via edgeRecord.GeomFrom/GeomTo
	names       []string      // indexed by NameID
	index       *spatialIndex
}

// Generation returns the monotonic version number of this dataset.
func (d *Dataset) Generation() uint64 { return d.generation }

// NodeCount returns the number of nodes in the node-coordinate table.
func (d *Dataset) NodeCount() int { return len(d.coordinates) }

// Coordinate returns the WGS84 coordinate of a node.
func (d *Dataset) Coordinate(n NodeID) (geo.Point, bool) {
	if int(n) >= len(d.coordinates) {
		return geo.Point{}, false
	}
	return d.coordinates[n], true
}

// Adjacency returns the outgoing edges of a node. The returned slice
// must not be mutated by the caller; it is a direct reference into the
// dataset's immutable adjacency table.
func (d *Dataset) Adjacency(n NodeID) []Edge {
	if int(n) >= len(d.adjacency) {
		return nil
	}
	return d.adjacency[n]
}

// EdgeWeight returns the travel cost of an edge.
func (d *Dataset) EdgeWeight(e EdgeID) (uint32, bool) {
	if int(e) >= len(d.edges) {
		return 0, false
	}
	return d.edges[e].Weight, true
}

// EdgeEndpoints returns the source and target node of an edge.
func (d *Dataset) EdgeEndpoints(e EdgeID) (NodeID, NodeID, bool) {
	if int(e) >= len(d.edges) {
		return 0, 0, false
	}
	r := d.edges[e]
	return r.Source, r.Target, true
}

// Geometry returns the polyline geometry of an edge.
func (d *Dataset) Geometry(e EdgeID) (geo.LineString, bool) {
	if int(e) >= len(d.edges) {
		return nil, false
	}
	r := d.edges[e]
	if r.GeomTo <= r.GeomFrom || int(r.GeomTo) > len(d.geometry) {
		return nil, false
	}
	return geo.LineString(d.geometry[r.GeomFrom:r.GeomTo]), true
}

// Name returns the string table entry for a name id (street name,
// ref, destination sign, etc).
func (d *Dataset) Name(id uint32) (string, bool) {
	if int(id) >= len(d.names) {
		return "", false
	}
	return d.names[id], true
}

// EdgeName is a convenience wrapper returning the name of an edge
// directly.
func (d *Dataset) EdgeName(e EdgeID) (string, bool) {
	if int(e) >= len(d.edges) {
		return "", false
	}
	return d.Name(d.edges[e].NameID)
}

// NearestEdge returns the edge closest to p, the point on that edge
// closest to p, and the distance in meters, using the dataset's
// spatial index.
func (d *Dataset) NearestEdge(p geo.Point) (EdgeID, geo.Point, float64, bool) {
	if d.index == nil {
		return 0, geo.Point{}, 0, false
	}
	return d.index.nearest(d, p)
}

// NearestEdges returns up to n candidate edges closest to p, ordered
// by distance ascending.
func (d *Dataset) NearestEdges(p geo.Point, n int) []NearestCandidate {
	if d.index == nil {
		return nil
	}
	return d.index.nearestN(d, p, n)
}

// NearestCandidate is one result row of NearestEdges.
type NearestCandidate struct {
	Edge     EdgeID
	Point    geo.Point
	Distance float64
}

// buildAdjacency groups edge records into per-source adjacency lists.
// Called once at load time; never recomputed.
func buildAdjacency(nodeCount int, edges []edgeRecord) [][]Edge {
	adj := make([][]Edge, nodeCount)
	for id, e := range edges {
		adj[e.Source] = append(adj[e.Source], Edge{Target: e.Target, Weight: e.Weight, EdgeID: EdgeID(id)})
	}
	return adj
}

// verifyGeneration is called after attaching to a region to check that
// the region's self-described generation matches what the control
// block claimed, per the attach protocol's integrity check.
func verifyGeneration(got, want uint64) error {
	if got != want {
		return fmt.Errorf("dataset generation mismatch: region reports %d, control block expects %d", got, want)
	}
	return nil
}
