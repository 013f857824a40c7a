package plugins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/geo"
)

func TestRoutePluginJoinsLegs(t *testing.T) {
	f := newLineFixture()
	p := &RoutePlugin{}

	status, result := p.Handle(context.Background(), RouteParams{
		Waypoints: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 3, Lat: 0}},
	}, f)

	require.True(t, status.IsOk())
	assert.Equal(t, uint32(300), result.Weight)
	assert.Len(t, result.Geometry, 4)
}

func TestRoutePluginRejectsTooFewWaypoints(t *testing.T) {
	f := newLineFixture()
	p := &RoutePlugin{}

	status, _ := p.Handle(context.Background(), RouteParams{Waypoints: []geo.Point{{Lon: 0, Lat: 0}}}, f)
	assert.Equal(t, apierr.InvalidParameters, status.Kind())
}

func TestRoutePluginEnforcesMaxLocations(t *testing.T) {
	f := newLineFixture()
	p := &RoutePlugin{MaxLocations: 2}

	status, _ := p.Handle(context.Background(), RouteParams{
		Waypoints: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 2, Lat: 0}},
	}, f)
	assert.Equal(t, apierr.TooManyLocations, status.Kind())
}

func TestTablePluginBuildsMatrix(t *testing.T) {
	f := newLineFixture()
	p := &TablePlugin{}

	status, result := p.Handle(context.Background(), TableParams{
		Coordinates: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 3, Lat: 0}},
	}, f)

	require.True(t, status.IsOk())
	assert.Equal(t, uint32(100), result.Weights[0][1])
	assert.Equal(t, uint32(300), result.Weights[0][2])
	assert.False(t, result.Unreachable[0][2])
}

func TestNearestPluginReturnsCandidatesOrdered(t *testing.T) {
	f := newLineFixture()
	p := &NearestPlugin{}

	status, result := p.Handle(context.Background(), NearestParams{Point: geo.Point{Lon: 0, Lat: 0}, Number: 1}, f)
	require.True(t, status.IsOk())
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 0.0, result.Candidates[0].DistanceMeters)
}

func TestNearestPluginNoSegment(t *testing.T) {
	f := newLineFixture()
	p := &NearestPlugin{}

	status, _ := p.Handle(context.Background(), NearestParams{Point: geo.Point{Lon: 99, Lat: 99}, Number: 1}, f)
	assert.Equal(t, apierr.NoSegment, status.Kind())
}

func TestTripPluginProducesTourNoWorseThanNearestNeighbor(t *testing.T) {
	f := newLineFixture()
	p := &TripPlugin{Table: &TablePlugin{}}

	coords := []geo.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 2, Lat: 0}, {Lon: 3, Lat: 0}}
	status, result := p.Handle(context.Background(), TripParams{Coordinates: coords}, f)

	require.True(t, status.IsOk())
	assert.Len(t, result.Order, 4)
	assert.Greater(t, result.Weight, uint32(0))

	_, table := (&TablePlugin{}).Handle(context.Background(), TableParams{Coordinates: coords}, f)
	nnWeight := tourWeight(table.Weights, nearestNeighborTour(table.Weights, len(coords)))
	assert.LessOrEqual(t, result.Weight, nnWeight)
}

func TestTripPluginEnforcesMaxLocations(t *testing.T) {
	f := newLineFixture()
	p := &TripPlugin{Table: &TablePlugin{}, MaxLocations: 2}

	status, _ := p.Handle(context.Background(), TripParams{
		Coordinates: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 2, Lat: 0}},
	}, f)
	assert.Equal(t, apierr.TooManyLocations, status.Kind())
}

func TestMatchPluginRejectsBeyondRadius(t *testing.T) {
	f := newLineFixture()
	f.nearestOf[geo.Point{Lon: 50, Lat: 50}] = nearestHit{edge: 0, point: geo.Point{Lon: 0, Lat: 0}, dist: 99999, exists: true}
	p := &MatchPlugin{RadiusMeters: 50}

	status, _ := p.Handle(context.Background(), MatchParams{
		Trace: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 50, Lat: 50}},
	}, f)
	assert.Equal(t, apierr.NoMatch, status.Kind())
}

func TestMatchPluginMatchesWithinRadius(t *testing.T) {
	f := newLineFixture()
	p := &MatchPlugin{RadiusMeters: 10}

	status, result := p.Handle(context.Background(), MatchParams{
		Trace: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 2, Lat: 0}},
	}, f)

	require.True(t, status.IsOk())
	assert.Len(t, result.Matched, 3)
	assert.Equal(t, uint32(200), result.Weight)
}

func TestMultiTargetPluginReportsPerTargetReachability(t *testing.T) {
	f := newLineFixture()
	p := &MultiTargetPlugin{}

	status, result := p.Handle(context.Background(), MultiTargetParams{
		Source:  geo.Point{Lon: 0, Lat: 0},
		Targets: []geo.Point{{Lon: 1, Lat: 0}, {Lon: 3, Lat: 0}},
	}, f)

	require.True(t, status.IsOk())
	require.Len(t, result.Legs, 2)
	assert.Equal(t, uint32(100), result.Legs[0].Weight)
	assert.Equal(t, uint32(300), result.Legs[1].Weight)
	assert.False(t, result.Legs[0].Unreachable)
}

func TestSmoothViaPluginDropsDuplicateJoinVertex(t *testing.T) {
	f := newLineFixture()
	p := &SmoothViaPlugin{}

	status, result := p.Handle(context.Background(), SmoothViaParams{
		Waypoints: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 3, Lat: 0}},
	}, f)

	require.True(t, status.IsOk())
	// Two legs of 2 and 3 points sharing one join vertex: 2 + 3 - 1 = 4.
	assert.Len(t, result.Geometry, 4)
	assert.Equal(t, uint32(300), result.Weight)
}

func TestTilePluginIncludesIntersectingEdges(t *testing.T) {
	f := newLineFixture()
	box := tileBoundingBox(0, 0, 0)
	center := geo.Point{Lon: (box.MinLon + box.MaxLon) / 2, Lat: (box.MinLat + box.MaxLat) / 2}

	var all []dataset.NearestCandidate
	for edgeID, geom := range f.geometry {
		all = append(all, dataset.NearestCandidate{Edge: edgeID, Point: geom[0], Distance: 0})
	}
	f.nearestNOf[center] = all

	p := &TilePlugin{}
	status, result := p.Handle(context.Background(), TileParams{Z: 0, X: 0, Y: 0}, f)

	require.True(t, status.IsOk())
	assert.Equal(t, len(f.geometry), result.EdgeCount)
	assert.NotEmpty(t, result.Data)
}

func TestTilePluginRejectsNegativeZoom(t *testing.T) {
	f := newLineFixture()
	p := &TilePlugin{}

	status, _ := p.Handle(context.Background(), TileParams{Z: -1}, f)
	assert.Equal(t, apierr.InvalidParameters, status.Kind())
}
