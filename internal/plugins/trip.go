package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// TripParams is the trip plugin's input: a list of coordinates to
// visit, in an order the plugin is free to optimize (round trip,
// starting and ending at Coordinates[0]).
type TripParams struct {
	Coordinates []geo.Point
}

// TripResult is the optimized visiting order (as indices into the
// input Coordinates) and the tour's total weight.
type TripResult struct {
	Order  []int
	Weight uint32
}

// TripPlugin implements a heuristic traveling-salesman solve over a
// table-plugin-computed distance matrix: nearest-neighbor construction
// followed by 2-opt improvement. Matches original_source's trip
// plugin, which is documented there as a heuristic, not an exact
// solver.
type TripPlugin struct {
	Table        *TablePlugin
	MaxLocations int
}

func (p *TripPlugin) Handle(ctx context.Context, params TripParams, f facade.Facade) (apierr.Status, TripResult) {
	n := len(params.Coordinates)
	if n < 2 {
		return invalidParameters("trip requires at least 2 coordinates, got %d", n), TripResult{}
	}
	if p.MaxLocations > 0 && n > p.MaxLocations {
		return tooManyLocations(n, p.MaxLocations), TripResult{}
	}

	status, table := p.Table.Handle(ctx, TableParams{Coordinates: params.Coordinates}, f)
	if !status.IsOk() {
		return status, TripResult{}
	}
	for i := range table.Unreachable {
		for j := range table.Unreachable[i] {
			if i != j && table.Unreachable[i][j] {
				return apierr.Error(apierr.NoTrip, "no feasible trip: %d and %d are not mutually reachable", i, j), TripResult{}
			}
		}
	}

	order := nearestNeighborTour(table.Weights, n)
	order, weight := twoOptImprove(table.Weights, order)

	return apierr.Ok(), TripResult{Order: order, Weight: weight}
}

func nearestNeighborTour(weights [][]uint32, n int) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)
	cur := 0
	visited[0] = true
	order = append(order, 0)

	for len(order) < n {
		best := -1
		var bestWeight uint32
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if best == -1 || weights[cur][j] < bestWeight {
				best = j
				bestWeight = weights[cur][j]
			}
		}
		visited[best] = true
		order = append(order, best)
		cur = best
	}
	return order
}

func tourWeight(weights [][]uint32, order []int) uint32 {
	var total uint32
	for i := 0; i < len(order); i++ {
		from := order[i]
		to := order[(i+1)%len(order)]
		total += weights[from][to]
	}
	return total
}

// twoOptImprove repeatedly reverses tour segments whenever doing so
// shortens the round trip, until no improving move remains. Segments
// start at index 1 or later, so order[0] stays the tour's start.
func twoOptImprove(weights [][]uint32, order []int) ([]int, uint32) {
	improved := true
	for improved {
		improved = false
		for i := 1; i < len(order)-1; i++ {
			for j := i + 1; j < len(order); j++ {
				candidate := reversedSegment(order, i, j)
				if tourWeight(weights, candidate) < tourWeight(weights, order) {
					order = candidate
					improved = true
				}
			}
		}
	}
	return order, tourWeight(weights, order)
}

func reversedSegment(order []int, i, j int) []int {
	out := make([]int, len(order))
	copy(out, order)
	for l, r := i, j; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

var _ Handler[TripParams, TripResult] = (*TripPlugin)(nil)
