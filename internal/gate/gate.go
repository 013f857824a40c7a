// Package gate implements the query gate: the RAII-style guard around
// every plugin invocation that enforces the dispatch specification's
// two-lock dance for the shared engine variant, and a trivial
// passthrough for the local variant. Every entry path through a Gate
// decrements whatever it incremented, including when the wrapped
// plugin call panics.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/applog"
	"github.com/osrm-go/routingd/internal/barriers"
	"github.com/osrm-go/routingd/internal/facade"
	"github.com/osrm-go/routingd/internal/metrics"
)

// Gate runs fn against a Facade snapshot that is guaranteed not to be
// released out from under it, converting a panic inside fn into an
// InternalError status rather than letting it escape.
type Gate interface {
	Run(ctx context.Context, fn func(f facade.Facade) apierr.Status) apierr.Status
}

// LocalGate wraps a LocalFacade, whose dataset lives for the engine's
// entire lifetime. There is no cross-process coordination to perform;
// the gate's only job here is the panic-to-InternalError conversion
// every plugin call gets regardless of engine variant.
type LocalGate struct {
	Facade *facade.LocalFacade
}

func (g *LocalGate) Run(ctx context.Context, fn func(f facade.Facade) apierr.Status) (result apierr.Status) {
	defer func() {
		if r := recover(); r != nil {
			applog.Gate().Error().Interface("panic", r).Msg("recovered panic from plugin handler")
			result = apierr.Error(apierr.InternalError, "plugin panicked: %v", r)
		}
	}()
	return fn(g.Facade)
}

var _ Gate = (*LocalGate)(nil)

// SharedGate implements the full two-lock protocol the dispatch
// specification's EngineLock describes:
//
//  1. acquire pending_update_mutex (excludes a loader that is mid-publish)
//  2. acquire query_mutex
//  3. increment the query counter
//  4. release pending_update_mutex
//  5. release query_mutex
//  6. check (and, if needed, perform) a dataset reload
//  7. take data_mutex in read mode for the duration of the plugin call
//  8. run the plugin, recovering any panic as InternalError
//  9. release data_mutex
//  10. acquire query_mutex
//  11. decrement the query counter
//  12. release query_mutex
//
// Steps 1-5 mirror EngineLock::IncreaseQueryCount in the original
// engine: pending_update_mutex is held only long enough to enqueue
// behind any in-progress or about-to-start publish, not for the
// query's duration, so queries continue to drain even while a loader
// is blocked waiting for a previous generation's readers to finish.
type SharedGate struct {
	Barriers *barriers.Barriers
	Facade   *facade.SharedFacade
}

func (g *SharedGate) Run(ctx context.Context, fn func(f facade.Facade) apierr.Status) apierr.Status {
	waitStart := time.Now()
	if err := g.enter(ctx); err != nil {
		return apierr.Error(apierr.DatasetUnavailable, "query gate enter: %v", err)
	}
	metrics.RecordGateWait("shared", time.Since(waitStart).Seconds())
	metrics.InFlightQueries.Set(float64(g.Barriers.Count()))

	result := g.runLocked(ctx, fn)

	// The decrement must happen even when ctx is already canceled or
	// past its deadline, so leave does not inherit ctx's cancellation.
	if err := g.leave(context.WithoutCancel(ctx)); err != nil {
		applog.Gate().Error().Err(err).Msg("failed to release query slot cleanly")
	}
	metrics.InFlightQueries.Set(float64(g.Barriers.Count()))

	return result
}

// enter performs steps 1-5: queue behind any in-progress publish,
// register this query, and get out of pending_update_mutex's way
// immediately so the loader isn't blocked by a long-running query that
// merely happened to start first.
func (g *SharedGate) enter(ctx context.Context) error {
	if err := g.Barriers.LockPendingUpdate(ctx); err != nil {
		return fmt.Errorf("acquiring pending_update_mutex: %w", err)
	}

	if err := g.Barriers.LockQuery(ctx); err != nil {
		g.Barriers.UnlockPendingUpdate()
		return fmt.Errorf("acquiring query_mutex: %w", err)
	}

	g.Barriers.IncrementQueries()

	// Released in the same order the dispatch specification's
	// EngineLock::IncreaseQueryCount uses: pending_update_mutex first,
	// so a loader waiting on it unblocks as soon as possible, then
	// query_mutex.
	if err := g.Barriers.UnlockPendingUpdate(); err != nil {
		applog.Gate().Error().Err(err).Msg("failed to release pending_update_mutex")
	}
	if err := g.Barriers.UnlockQuery(); err != nil {
		applog.Gate().Error().Err(err).Msg("failed to release query_mutex")
	}
	return nil
}

// runLocked performs steps 6-9: reload if needed, hold data_mutex in
// read mode for the plugin call, and convert a panic into InternalError
// the same way LocalGate does.
func (g *SharedGate) runLocked(ctx context.Context, fn func(f facade.Facade) apierr.Status) (result apierr.Status) {
	if err := g.Facade.CheckAndReload(); err != nil {
		return apierr.Error(apierr.DatasetUnavailable, "%v", err)
	}

	g.Facade.RLockData()
	defer g.Facade.RUnlockData()

	defer func() {
		if r := recover(); r != nil {
			applog.Gate().Error().Interface("panic", r).Msg("recovered panic from plugin handler")
			result = apierr.Error(apierr.InternalError, "plugin panicked: %v", r)
		}
	}()
	return fn(g.Facade)
}

// leave performs steps 10-12: decrement the query counter under
// query_mutex. This never touches pending_update_mutex — a loader
// waiting in WaitForDrain only needs the counter to reach zero, not
// pending_update_mutex to be free (it already holds it).
func (g *SharedGate) leave(ctx context.Context) error {
	if err := g.Barriers.LockQuery(ctx); err != nil {
		return fmt.Errorf("acquiring query_mutex: %w", err)
	}
	defer g.Barriers.UnlockQuery()

	g.Barriers.DecrementQueries()
	return nil
}

var _ Gate = (*SharedGate)(nil)
