package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// SmoothViaParams mirrors RouteParams: an ordered list of waypoints,
// where every waypoint after the first and before the last is a via
// point.
type SmoothViaParams struct {
	Waypoints []geo.Point
}

// SmoothViaResult is the joined, smoothed route.
type SmoothViaResult struct {
	DistanceMeters float64
	Weight         uint32
	Geometry       geo.LineString
}

// SmoothViaPlugin is route's sibling with geometry smoothing at via
// joins: each leg is run independently, and the duplicate vertex at
// the shared via point between consecutive legs is dropped so the
// joined geometry has no sharp zero-length segment artifact. Matches
// original_source's smooth_via role of avoiding this kind of via-point
// artifact. RoutePlugin's stitched geometry also drops shared join
// vertices, so for the same waypoints both return the same geometry.
type SmoothViaPlugin struct {
	MaxLocations int
}

func (p *SmoothViaPlugin) Handle(ctx context.Context, params SmoothViaParams, f facade.Facade) (apierr.Status, SmoothViaResult) {
	if len(params.Waypoints) < 2 {
		return invalidParameters("smooth_via requires at least 2 waypoints, got %d", len(params.Waypoints)), SmoothViaResult{}
	}
	if p.MaxLocations > 0 && len(params.Waypoints) > p.MaxLocations {
		return tooManyLocations(len(params.Waypoints), p.MaxLocations), SmoothViaResult{}
	}

	nodes := make([]dataset.NodeID, len(params.Waypoints))
	for i, wp := range params.Waypoints {
		n, ok := snapToNode(f, wp)
		if !ok {
			return invalidParameters("waypoint %d could not be snapped to the network", i), SmoothViaResult{}
		}
		nodes[i] = n
	}

	var legGeometries []geo.LineString
	var totalWeight uint32
	for i := 0; i < len(nodes)-1; i++ {
		leg, ok := shortestPath(f, nodes[i], nodes[i+1])
		if !ok {
			return apierr.Error(apierr.NoRoute, "no route between waypoint %d and %d", i, i+1), SmoothViaResult{}
		}
		legGeometries = append(legGeometries, stitchGeometry(f, leg.edges))
		totalWeight += leg.weight
	}

	geometry := smoothJoins(legGeometries)
	return apierr.Ok(), SmoothViaResult{
		DistanceMeters: geometry.Length(),
		Weight:         totalWeight,
		Geometry:       geometry,
	}
}

// smoothJoins concatenates per-leg geometries, dropping the first
// point of every leg after the first: consecutive legs share their
// via-point vertex, so naive concatenation would duplicate it.
func smoothJoins(legs []geo.LineString) geo.LineString {
	var out geo.LineString
	for i, leg := range legs {
		if i > 0 && len(leg) > 0 {
			leg = leg[1:]
		}
		out = append(out, leg...)
	}
	return out
}

var _ Handler[SmoothViaParams, SmoothViaResult] = (*SmoothViaPlugin)(nil)
