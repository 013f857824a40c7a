package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osrm-go/routingd/internal/geo"
)

// fixtureInput builds a tiny three-node, two-edge road network: A -> B -> C.
func fixtureInput() BuildInput {
	nodes := []geo.Point{
		{Lon: 0, Lat: 0},   // A = node 0
		{Lon: 0, Lat: 0.01}, // B = node 1
		{Lon: 0, Lat: 0.02}, // C = node 2
	}
	geometry := []geo.Point{
		{Lon: 0, Lat: 0}, {Lon: 0, Lat: 0.01}, // edge 0: A->B
		{Lon: 0, Lat: 0.01}, {Lon: 0, Lat: 0.02}, // edge 1: B->C
	}
	edges := []edgeRecord{
		NewEdgeRecord(0, 1, 100, 0, 0, 2),
		NewEdgeRecord(1, 2, 150, 1, 2, 4),
	}
	names := []string{"Main Street", "Second Street"}

	return BuildInput{Nodes: nodes, Edges: edges, Geometry: geometry, Names: names}
}

func fixturePaths(t *testing.T) LocalPaths {
	dir := t.TempDir()
	return LocalPaths{
		Nodes:    filepath.Join(dir, "nodes.dat"),
		Edges:    filepath.Join(dir, "edges.dat"),
		Geometry: filepath.Join(dir, "geometry.dat"),
		Names:    filepath.Join(dir, "names.dat"),
		RTree:    filepath.Join(dir, "rtree.dat"),
	}
}

func TestLoadLocalRoundTrip(t *testing.T) {
	paths := fixturePaths(t)
	require.NoError(t, WriteLocal(paths, fixtureInput()))

	ds, closer, err := LoadLocal(paths)
	require.NoError(t, err)
	defer closer()

	assert.Equal(t, 3, ds.NodeCount())

	coord, ok := ds.Coordinate(1)
	require.True(t, ok)
	assert.Equal(t, geo.Point{Lon: 0, Lat: 0.01}, coord)

	adj := ds.Adjacency(0)
	require.Len(t, adj, 1)
	assert.Equal(t, NodeID(1), adj[0].Target)
	assert.Equal(t, uint32(100), adj[0].Weight)

	weight, ok := ds.EdgeWeight(adj[0].EdgeID)
	require.True(t, ok)
	assert.Equal(t, uint32(100), weight)

	name, ok := ds.EdgeName(adj[0].EdgeID)
	require.True(t, ok)
	assert.Equal(t, "Main Street", name)

	geom, ok := ds.Geometry(adj[0].EdgeID)
	require.True(t, ok)
	assert.Len(t, geom, 2)
}

func TestLoadLocalMissingFile(t *testing.T) {
	paths := fixturePaths(t)
	// Do not write anything; all five files are missing.
	_, _, err := LoadLocal(paths)
	require.Error(t, err)
}

func TestNearestEdge(t *testing.T) {
	paths := fixturePaths(t)
	require.NoError(t, WriteLocal(paths, fixtureInput()))
	ds, closer, err := LoadLocal(paths)
	require.NoError(t, err)
	defer closer()

	edge, pt, dist, ok := ds.NearestEdge(geo.Point{Lon: 0.0001, Lat: 0.005})
	require.True(t, ok)
	assert.Equal(t, EdgeID(0), edge)
	assert.InDelta(t, 0, pt.Lon, 0.001)
	assert.Greater(t, dist, 0.0)
}

func TestNearestEdgesOrdersByDistance(t *testing.T) {
	paths := fixturePaths(t)
	require.NoError(t, WriteLocal(paths, fixtureInput()))
	ds, closer, err := LoadLocal(paths)
	require.NoError(t, err)
	defer closer()

	results := ds.NearestEdges(geo.Point{Lon: 0, Lat: 0.015}, 2)
	require.Len(t, results, 2)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestWriteRegionAndLoadRegionGenerationCheck(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteRegion(dir, RegionA, 7, fixtureInput()))

	ds, closer, err := LoadRegion(dir, RegionA, 7)
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, uint64(7), ds.Generation())

	_, _, err = LoadRegion(dir, RegionA, 8)
	require.Error(t, err, "generation mismatch must be rejected")
}

func TestControlBlockReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cb, err := OpenControlBlock(filepath.Join(dir, "control.dat"))
	require.NoError(t, err)
	defer cb.Close()

	tag, gen := cb.Read()
	assert.Equal(t, RegionA, tag)
	assert.Equal(t, uint64(0), gen)

	cb.Publish(RegionB, 42)

	tag, gen = cb.Read()
	assert.Equal(t, RegionB, tag)
	assert.Equal(t, uint64(42), gen)
}
