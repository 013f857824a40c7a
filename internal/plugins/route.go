package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// RouteParams is the viaroute plugin's input: an ordered list of
// waypoints, at least two.
type RouteParams struct {
	Waypoints []geo.Point
}

// RouteResult is a single joined route across every waypoint leg.
type RouteResult struct {
	DistanceMeters float64
	Weight         uint32
	Geometry       geo.LineString
}

// RoutePlugin implements the viaroute query: a Dijkstra shortest path
// run leg-by-leg between consecutive waypoints, joined into one
// result. Grounded on original_source's viaroute plugin, which is the
// original engine's primary routing entry point.
type RoutePlugin struct {
	MaxLocations int
}

func (p *RoutePlugin) Handle(ctx context.Context, params RouteParams, f facade.Facade) (apierr.Status, RouteResult) {
	if len(params.Waypoints) < 2 {
		return invalidParameters("route requires at least 2 waypoints, got %d", len(params.Waypoints)), RouteResult{}
	}
	if p.MaxLocations > 0 && len(params.Waypoints) > p.MaxLocations {
		return tooManyLocations(len(params.Waypoints), p.MaxLocations), RouteResult{}
	}

	nodes := make([]dataset.NodeID, len(params.Waypoints))
	for i, wp := range params.Waypoints {
		n, ok := snapToNode(f, wp)
		if !ok {
			return invalidParameters("waypoint %d could not be snapped to the network", i), RouteResult{}
		}
		nodes[i] = n
	}

	var allEdges []dataset.EdgeID
	var totalWeight uint32
	for i := 0; i < len(nodes)-1; i++ {
		leg, ok := shortestPath(f, nodes[i], nodes[i+1])
		if !ok {
			return apierr.Error(apierr.NoRoute, "no route between waypoint %d and %d", i, i+1), RouteResult{}
		}
		allEdges = append(allEdges, leg.edges...)
		totalWeight += leg.weight
	}

	geometry := stitchGeometry(f, allEdges)
	return apierr.Ok(), RouteResult{
		DistanceMeters: geometry.Length(),
		Weight:         totalWeight,
		Geometry:       geometry,
	}
}

var _ Handler[RouteParams, RouteResult] = (*RoutePlugin)(nil)
