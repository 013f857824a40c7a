package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/geo"
)

// NearestParams is the nearest plugin's input: a single query point
// and the number of candidates to return, matching original_source's
// nearest plugin's "number" parameter (supplementing spec.md, which
// only names the plugin).
type NearestParams struct {
	Point  geo.Point
	Number int
}

// NearestCandidateResult is one snapped candidate, ordered by
// ascending distance.
type NearestCandidateResult struct {
	Point          geo.Point
	DistanceMeters float64
}

// NearestResult holds up to Number candidates.
type NearestResult struct {
	Candidates []NearestCandidateResult
}

// NearestPlugin implements nearest-edge lookup: the N closest snapped
// points to a query coordinate, sorted by distance.
type NearestPlugin struct{}

func (p *NearestPlugin) Handle(ctx context.Context, params NearestParams, f facade.Facade) (apierr.Status, NearestResult) {
	number := params.Number
	if number <= 0 {
		number = 1
	}

	candidates := f.NearestEdges(params.Point, number)
	if len(candidates) == 0 {
		return apierr.Error(apierr.NoSegment, "no network segment found near the query point"), NearestResult{}
	}

	out := make([]NearestCandidateResult, len(candidates))
	for i, c := range candidates {
		out[i] = NearestCandidateResult{Point: c.Point, DistanceMeters: c.Distance}
	}
	return apierr.Ok(), NearestResult{Candidates: out}
}

var _ Handler[NearestParams, NearestResult] = (*NearestPlugin)(nil)
