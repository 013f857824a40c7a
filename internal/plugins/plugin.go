// Package plugins implements the eight query plugins the dispatch core
// serves: route, table, nearest, trip, match, tile, multi_target, and
// smooth_via. Every plugin is a stateless Handler consuming only the
// facade.Facade contract, so the locking/dispatch layer in
// internal/gate and internal/engine exercises the same code path
// regardless of which plugin runs.
package plugins

import (
	"context"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/facade"
)

// Handler is the generic plugin contract: given validated parameters
// and a facade snapshot, produce a Status plus a result. Go generics
// stand in for the original engine's vtable-based BasePlugin
// dispatch — see internal/engine's registry for the compile-time-closed
// set of instantiations.
type Handler[P any, R any] interface {
	Handle(ctx context.Context, params P, f facade.Facade) (apierr.Status, R)
}

// tooManyLocations builds the standard cap-exceeded status, shared by
// every plugin that enforces a MaxLocations cap.
func tooManyLocations(got, max int) apierr.Status {
	return apierr.Error(apierr.TooManyLocations, "got %d locations, max is %d", got, max)
}

func invalidParameters(format string, args ...any) apierr.Status {
	return apierr.Error(apierr.InvalidParameters, format, args...)
}
