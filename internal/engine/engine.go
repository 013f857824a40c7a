// Package engine implements the dispatch core's top-level entry point:
// Engine owns one facade/gate pair and the closed set of eight plugins
// bound to it, and exposes one typed query method per plugin kind.
// Every method funnels through the package-level run helper, which
// mirrors RunQuery from original_source/src/engine/engine.cpp: acquire
// the query gate, invoke the plugin, return its Status and result.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/applog"
	"github.com/osrm-go/routingd/internal/barriers"
	"github.com/osrm-go/routingd/internal/config"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/gate"
	"github.com/osrm-go/routingd/internal/metrics"
	"github.com/osrm-go/routingd/internal/plugins"
)

// Engine is the dispatch core's single entry point. It owns its
// facade and gate for its entire lifetime and exposes the fixed set of
// eight query kinds — there is no dynamic plugin loading, per the
// dispatch specification's closed-registry requirement.
type Engine struct {
	gate gate.Gate

	route       *plugins.RoutePlugin
	table       *plugins.TablePlugin
	nearest     *plugins.NearestPlugin
	trip        *plugins.TripPlugin
	match       *plugins.MatchPlugin
	tile        *plugins.TilePlugin
	multiTarget *plugins.MultiTargetPlugin
	smoothVia   *plugins.SmoothViaPlugin

	closer func() error
}

// New builds an Engine from cfg: a process-local engine if
// cfg.UseSharedMemory is false (facade construction fails fast with
// ConfigInvalid if storage paths are bad), or a shared engine attached
// to cfg.SharedMemoryDir otherwise (construction always succeeds; the
// first query reports DatasetUnavailable until a loader publishes a
// generation).
func New(cfg config.EngineConfig) (*Engine, error) {
	var g gate.Gate
	var closer func() error

	if cfg.UseSharedMemory {
		b, err := barriers.Open(cfg.SharedMemoryDir)
		if err != nil {
			return nil, fmt.Errorf("opening shared barriers: %w", err)
		}
		f, err := facade.NewShared(cfg.SharedMemoryDir)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("opening shared facade: %w", err)
		}
		g = &gate.SharedGate{Barriers: b, Facade: f}
		closer = func() error {
			errFacade := f.Close()
			errBarriers := b.Close()
			if errFacade != nil {
				return errFacade
			}
			return errBarriers
		}
	} else {
		f, err := facade.NewLocal(cfg.StorageConfig)
		if err != nil {
			return nil, err
		}
		g = &gate.LocalGate{Facade: f}
		closer = f.Close
	}

	table := &plugins.TablePlugin{MaxLocations: cfg.MaxLocationsDistanceTable}
	e := &Engine{
		gate:        g,
		route:       &plugins.RoutePlugin{MaxLocations: cfg.MaxLocationsViaroute},
		table:       table,
		nearest:     &plugins.NearestPlugin{},
		trip:        &plugins.TripPlugin{Table: table, MaxLocations: cfg.MaxLocationsTrip},
		match:       &plugins.MatchPlugin{RadiusMeters: cfg.MatchRadiusMeters, MaxLocations: cfg.MaxLocationsMapMatching},
		tile:        &plugins.TilePlugin{},
		// multi_target has no cap named in the dispatch specification's
		// option table; MultiTargetPlugin.MaxLocations stays at its zero
		// value (unlimited) rather than borrowing another plugin's cap.
		multiTarget: &plugins.MultiTargetPlugin{},
		smoothVia:   &plugins.SmoothViaPlugin{MaxLocations: cfg.MaxLocationsViaroute},
		closer:      closer,
	}

	applog.Dispatch().Info().Bool("shared", cfg.UseSharedMemory).Msg("engine constructed")
	return e, nil
}

// Close releases the engine's facade (and, for the shared variant, its
// barrier handles).
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

// run is the generic dispatch helper every typed entry point below
// delegates to: it hands the plugin's Handle method to the gate, which
// wraps it with the full lock/reload/panic-recovery protocol, threads
// the plugin's result back out through the closure since
// gate.Gate.Run only returns a Status, and records the query's outcome
// and latency under label for internal/metrics.
func run[P any, R any](ctx context.Context, g gate.Gate, label string, params P, h plugins.Handler[P, R]) (apierr.Status, R) {
	start := time.Now()
	var result R
	status := g.Run(ctx, func(f facade.Facade) apierr.Status {
		var s apierr.Status
		s, result = h.Handle(ctx, params, f)
		return s
	})
	metrics.RecordQuery(label, string(status.Kind()), time.Since(start).Seconds())
	return status, result
}

// Route runs the viaroute plugin.
func (e *Engine) Route(ctx context.Context, params plugins.RouteParams) (apierr.Status, plugins.RouteResult) {
	return run(ctx, e.gate, "route", params, e.route)
}

// Table runs the distance-table plugin.
func (e *Engine) Table(ctx context.Context, params plugins.TableParams) (apierr.Status, plugins.TableResult) {
	return run(ctx, e.gate, "table", params, e.table)
}

// Nearest runs the nearest-edge plugin.
func (e *Engine) Nearest(ctx context.Context, params plugins.NearestParams) (apierr.Status, plugins.NearestResult) {
	return run(ctx, e.gate, "nearest", params, e.nearest)
}

// Trip runs the heuristic trip-planning plugin.
func (e *Engine) Trip(ctx context.Context, params plugins.TripParams) (apierr.Status, plugins.TripResult) {
	return run(ctx, e.gate, "trip", params, e.trip)
}

// Match runs the map-matching plugin.
func (e *Engine) Match(ctx context.Context, params plugins.MatchParams) (apierr.Status, plugins.MatchResult) {
	return run(ctx, e.gate, "match", params, e.match)
}

// Tile runs the vector-tile rendering plugin.
func (e *Engine) Tile(ctx context.Context, params plugins.TileParams) (apierr.Status, plugins.TileResult) {
	return run(ctx, e.gate, "tile", params, e.tile)
}

// MultiTarget runs the single-source/many-targets plugin.
func (e *Engine) MultiTarget(ctx context.Context, params plugins.MultiTargetParams) (apierr.Status, plugins.MultiTargetResult) {
	return run(ctx, e.gate, "multi_target", params, e.multiTarget)
}

// SmoothVia runs the via-smoothing route plugin.
func (e *Engine) SmoothVia(ctx context.Context, params plugins.SmoothViaParams) (apierr.Status, plugins.SmoothViaResult) {
	return run(ctx, e.gate, "smooth_via", params, e.smoothVia)
}
