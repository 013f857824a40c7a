// Package loader simulates the external loader collaborator the
// dispatch specification describes but does not itself implement: the
// out-of-process tool that prepares a new dataset generation in the
// shared memory's non-current region and publishes it. It is shipped
// alongside the core (not imported by it) so the end-to-end scenarios
// of the dispatch specification are runnable as ordinary Go tests, and
// so cmd/routingd-loader has something real to wrap.
//
// The worker-pool shape (a buffered request queue drained by a single
// goroutine, started/stopped explicitly) is carried from the teacher's
// internal/services.CommandDispatcher, generalized from "dispatch
// commands to agents" to "publish dataset generations" — one worker is
// correct here (not configurable, unlike the teacher's), since
// pending_update_mutex already serializes publishes across processes;
// a single in-process worker just avoids two in-process callers
// racing to enqueue out of order.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/osrm-go/routingd/internal/applog"
	"github.com/osrm-go/routingd/internal/barriers"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/events"
	"github.com/osrm-go/routingd/internal/metrics"
)

// publishRequest is one queued publish job and the channel its caller
// blocks on for the result.
type publishRequest struct {
	ctx        context.Context
	tag        dataset.RegionTag
	generation uint64
	input      dataset.BuildInput
	result     chan error
}

// Loader drives the dual protocol of the dispatch specification's
// external-loader contract against the same internal/barriers and
// internal/dataset primitives the engine's shared facade uses.
type Loader struct {
	baseDir  string
	barriers *barriers.Barriers
	cb       *dataset.ControlBlock

	// Events is an optional best-effort lifecycle event publisher. Nil
	// (the zero value after New) means no events are published; set it
	// directly before calling Start/Publish/Enqueue to enable them.
	Events *events.Publisher

	queue    chan *publishRequest
	stopChan chan struct{}
}

// New opens (creating if necessary) the barrier triple and control
// block rooted at baseDir — the same directory a SharedFacade in the
// same deployment attaches to.
func New(baseDir string) (*Loader, error) {
	b, err := barriers.Open(baseDir)
	if err != nil {
		return nil, fmt.Errorf("opening barriers: %w", err)
	}
	cb, err := dataset.OpenControlBlock(baseDir + "/control.dat")
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("opening control block: %w", err)
	}
	return &Loader{
		baseDir:  baseDir,
		barriers: b,
		cb:       cb,
		queue:    make(chan *publishRequest, 16),
		stopChan: make(chan struct{}),
	}, nil
}

// Close releases the loader's barrier and control-block handles. Call
// Stop first if Start is running.
func (l *Loader) Close() error {
	errBarriers := l.barriers.Close()
	errCB := l.cb.Close()
	if errBarriers != nil {
		return errBarriers
	}
	return errCB
}

// Start runs the publish worker until Stop is called. Intended to be
// run in its own goroutine, matching CommandDispatcher.Start's shape.
func (l *Loader) Start() {
	applog.Loader().Info().Msg("loader worker starting")
	for {
		select {
		case req := <-l.queue:
			req.result <- l.publish(req.ctx, req.tag, req.generation, req.input)
		case <-l.stopChan:
			applog.Loader().Info().Msg("loader worker stopped")
			return
		}
	}
}

// Stop signals the worker goroutine to exit after its current publish
// (if any) finishes.
func (l *Loader) Stop() {
	close(l.stopChan)
}

// NextRegion returns the region tag a loader should write its next
// generation into: whichever one the control block does not currently
// point at, or RegionA if nothing has been published yet.
func (l *Loader) NextRegion() dataset.RegionTag {
	current, generation := l.cb.Read()
	if generation == 0 {
		return dataset.RegionA
	}
	return current.Other()
}

// NextGeneration returns one past the generation id currently
// published in the control block (0 if nothing has been published
// yet), for callers that just want each publish to monotonically
// increase without tracking generation numbers themselves.
func (l *Loader) NextGeneration() uint64 {
	_, generation := l.cb.Read()
	return generation + 1
}

// Enqueue queues a publish job and blocks until the worker goroutine
// (started via Start) processes it, returning its error.
func (l *Loader) Enqueue(ctx context.Context, tag dataset.RegionTag, generation uint64, input dataset.BuildInput) error {
	req := &publishRequest{ctx: ctx, tag: tag, generation: generation, input: input, result: make(chan error, 1)}
	l.queue <- req
	return <-req.result
}

// Publish runs the full protocol synchronously in the caller's
// goroutine, bypassing the worker queue — used directly by tests and
// by cmd/routingd-loader's one-shot mode.
func (l *Loader) Publish(ctx context.Context, tag dataset.RegionTag, generation uint64, input dataset.BuildInput) error {
	return l.publish(ctx, tag, generation, input)
}

// publish implements the dispatch specification's §4.5 external
// loader protocol: prepare the dataset in the target region, then
// acquire pending_update_mutex, acquire query_mutex, wait for the
// query counter to drain to zero, flip the control block, and release
// both mutexes.
func (l *Loader) publish(ctx context.Context, tag dataset.RegionTag, generation uint64, input dataset.BuildInput) (err error) {
	var drainSeconds float64
	defer func() {
		metrics.RecordSwap(tag.String(), err == nil, drainSeconds)
	}()

	if err := dataset.WriteRegion(l.baseDir, tag, generation, input); err != nil {
		l.publishSwapFailed(ctx, tag, generation, "preparing region")
		return fmt.Errorf("preparing region %s generation %d: %w", tag, generation, err)
	}

	if err := l.barriers.LockPendingUpdate(ctx); err != nil {
		l.publishSwapFailed(ctx, tag, generation, "acquiring pending_update_mutex")
		return fmt.Errorf("acquiring pending_update_mutex: %w", err)
	}
	defer l.barriers.UnlockPendingUpdate()

	if err := l.barriers.LockQuery(ctx); err != nil {
		l.publishSwapFailed(ctx, tag, generation, "acquiring query_mutex")
		return fmt.Errorf("acquiring query_mutex: %w", err)
	}
	defer l.barriers.UnlockQuery()

	applog.Loader().Info().Str("region", tag.String()).Uint64("generation", generation).Msg("waiting for in-flight queries to drain")
	drainStart := time.Now()
	if err := l.barriers.WaitForDrain(ctx); err != nil {
		l.publishSwapFailed(ctx, tag, generation, "waiting for query drain")
		return fmt.Errorf("waiting for query drain: %w", err)
	}
	drainSeconds = time.Since(drainStart).Seconds()

	l.cb.Publish(tag, generation)
	metrics.RecordGeneration(tag.String(), generation)
	applog.Loader().Info().Str("region", tag.String()).Uint64("generation", generation).Msg("published new dataset generation")
	if l.Events != nil {
		if err := l.Events.PublishDatasetPublished(ctx, tag.String(), generation); err != nil {
			applog.Loader().Warn().Err(err).Msg("failed to publish dataset-published event")
		}
	}
	return nil
}

// publishSwapFailed best-effort announces a failed publish attempt;
// it never returns an error since a failing notification must not mask
// the original swap failure being reported to the caller.
func (l *Loader) publishSwapFailed(ctx context.Context, tag dataset.RegionTag, generation uint64, reason string) {
	if l.Events == nil {
		return
	}
	if err := l.Events.PublishDatasetSwapFailed(ctx, tag.String(), generation, reason); err != nil {
		applog.Loader().Warn().Err(err).Msg("failed to publish dataset-swap-failed event")
	}
}
