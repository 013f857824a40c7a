package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// MatchParams is the map-matching plugin's input: a GPS trace.
type MatchParams struct {
	Trace []geo.Point
}

// MatchedPoint pairs an input trace point with its snapped network
// position.
type MatchedPoint struct {
	Input          geo.Point
	Snapped        geo.Point
	DistanceMeters float64
}

// MatchResult is the matched trace plus the joined route through it.
type MatchResult struct {
	Matched  []MatchedPoint
	Geometry geo.LineString
	Weight   uint32
}

// MatchPlugin implements a simplified map-matching query: snap every
// trace point to its nearest edge and reject the trace as NoMatch if
// any snap distance exceeds RadiusMeters, then route through the
// matched points leg-by-leg. This replaces the original engine's
// Hidden Markov Model matcher (out of scope per spec.md) with the
// simplest operation that is still a genuine, testable consumer of
// NearestEdge and the routing path.
type MatchPlugin struct {
	RadiusMeters float64
	MaxLocations int
}

func (p *MatchPlugin) Handle(ctx context.Context, params MatchParams, f facade.Facade) (apierr.Status, MatchResult) {
	n := len(params.Trace)
	if n < 2 {
		return invalidParameters("match requires at least 2 trace points, got %d", n), MatchResult{}
	}
	if p.MaxLocations > 0 && n > p.MaxLocations {
		return tooManyLocations(n, p.MaxLocations), MatchResult{}
	}

	matched := make([]MatchedPoint, len(params.Trace))
	nodes := make([]dataset.NodeID, len(params.Trace))
	for i, tp := range params.Trace {
		_, snapped, dist, ok := f.NearestEdge(tp)
		if !ok {
			return apierr.Error(apierr.NoMatch, "trace point %d has no nearby network segment", i), MatchResult{}
		}
		if p.RadiusMeters > 0 && dist > p.RadiusMeters {
			return apierr.Error(apierr.NoMatch, "trace point %d snap distance %.1fm exceeds radius %.1fm", i, dist, p.RadiusMeters), MatchResult{}
		}
		node, ok := snapToNode(f, tp)
		if !ok {
			return apierr.Error(apierr.NoMatch, "trace point %d could not be snapped to a vertex", i), MatchResult{}
		}
		matched[i] = MatchedPoint{Input: tp, Snapped: snapped, DistanceMeters: dist}
		nodes[i] = node
	}

	var allEdges []dataset.EdgeID
	var totalWeight uint32
	for i := 0; i < len(nodes)-1; i++ {
		leg, ok := shortestPath(f, nodes[i], nodes[i+1])
		if !ok {
			return apierr.Error(apierr.NoMatch, "no path between matched points %d and %d", i, i+1), MatchResult{}
		}
		allEdges = append(allEdges, leg.edges...)
		totalWeight += leg.weight
	}

	return apierr.Ok(), MatchResult{
		Matched:  matched,
		Geometry: stitchGeometry(f, allEdges),
		Weight:   totalWeight,
	}
}

var _ Handler[MatchParams, MatchResult] = (*MatchPlugin)(nil)
