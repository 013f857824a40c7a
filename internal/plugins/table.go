package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// TableParams is the table plugin's input: a list of coordinates to
// build an all-pairs duration matrix over.
type TableParams struct {
	Coordinates []geo.Point
}

// TableResult is a square matrix; Unreachable[i][j] is true wherever
// no path exists, in which case Weights[i][j] is meaningless.
type TableResult struct {
	Weights     [][]uint32
	Unreachable [][]bool
}

// TablePlugin implements the distance-table query: repeated Dijkstra
// from every coordinate to every other, producing a full matrix.
// Grounded on original_source's table plugin, the many-to-many sibling
// of viaroute.
type TablePlugin struct {
	MaxLocations int
}

func (p *TablePlugin) Handle(ctx context.Context, params TableParams, f facade.Facade) (apierr.Status, TableResult) {
	n := len(params.Coordinates)
	if n < 1 {
		return invalidParameters("table requires at least 1 coordinate, got %d", n), TableResult{}
	}
	if p.MaxLocations > 0 && n > p.MaxLocations {
		return tooManyLocations(n, p.MaxLocations), TableResult{}
	}

	nodes := make([]dataset.NodeID, n)
	for i, c := range params.Coordinates {
		node, ok := snapToNode(f, c)
		if !ok {
			return invalidParameters("coordinate %d could not be snapped to the network", i), TableResult{}
		}
		nodes[i] = node
	}

	weights := make([][]uint32, n)
	unreachable := make([][]bool, n)
	for i := range nodes {
		weights[i] = make([]uint32, n)
		unreachable[i] = make([]bool, n)
		for j := range nodes {
			if i == j {
				continue
			}
			result, ok := shortestPath(f, nodes[i], nodes[j])
			if !ok {
				unreachable[i][j] = true
				continue
			}
			weights[i][j] = result.weight
		}
	}

	return apierr.Ok(), TableResult{Weights: weights, Unreachable: unreachable}
}

var _ Handler[TableParams, TableResult] = (*TablePlugin)(nil)
