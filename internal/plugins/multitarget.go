package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// MultiTargetParams is a single source fanning out to many targets.
type MultiTargetParams struct {
	Source  geo.Point
	Targets []geo.Point
}

// MultiTargetLeg is one source-to-target result; Unreachable is true
// when Weight/DistanceMeters are meaningless.
type MultiTargetLeg struct {
	Weight         uint32
	DistanceMeters float64
	Unreachable    bool
}

// MultiTargetResult holds one leg per input target, in input order.
type MultiTargetResult struct {
	Legs []MultiTargetLeg
}

// MultiTargetPlugin implements single-source-to-many-targets routing:
// a generalization of route for the fan-out case original_source's
// multi-target plugin exists for. Each leg is computed independently;
// unlike the route plugin, which fails with NoRoute, it reports
// per-target reachability rather than failing the whole query when one
// target is unreachable.
type MultiTargetPlugin struct {
	MaxLocations int
}

func (p *MultiTargetPlugin) Handle(ctx context.Context, params MultiTargetParams, f facade.Facade) (apierr.Status, MultiTargetResult) {
	if len(params.Targets) == 0 {
		return invalidParameters("multi_target requires at least 1 target"), MultiTargetResult{}
	}
	if p.MaxLocations > 0 && len(params.Targets)+1 > p.MaxLocations {
		return tooManyLocations(len(params.Targets)+1, p.MaxLocations), MultiTargetResult{}
	}

	source, ok := snapToNode(f, params.Source)
	if !ok {
		return invalidParameters("source could not be snapped to the network"), MultiTargetResult{}
	}

	targetNodes := make([]dataset.NodeID, len(params.Targets))
	for i, t := range params.Targets {
		node, ok := snapToNode(f, t)
		if !ok {
			return invalidParameters("target %d could not be snapped to the network", i), MultiTargetResult{}
		}
		targetNodes[i] = node
	}

	legs := make([]MultiTargetLeg, len(targetNodes))
	for i, target := range targetNodes {
		leg, ok := shortestPath(f, source, target)
		if !ok {
			legs[i] = MultiTargetLeg{Unreachable: true}
			continue
		}
		legs[i] = MultiTargetLeg{
			Weight:         leg.weight,
			DistanceMeters: stitchGeometry(f, leg.edges).Length(),
		}
	}

	return apierr.Ok(), MultiTargetResult{Legs: legs}
}

var _ Handler[MultiTargetParams, MultiTargetResult] = (*MultiTargetPlugin)(nil)
