package facade

import (
	"sync"
	"sync/atomic"

	"github.com/osrm-go/routingd/internal/applog"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/geo"
)

// datasetHolder is the immutable snapshot a SharedFacade publishes on
// every successful reload: a dataset, the region it came from, and the
// function that releases its mapped memory.
type datasetHolder struct {
	ds     *dataset.Dataset
	tag    dataset.RegionTag
	closer func() error
}

// SharedFacade attaches to a dataset published by an external loader
// in one of two shared-memory regions. It starts empty; the first
// query (and any subsequent query after a detected generation change)
// triggers CheckAndReload, which may re-attach to a newer generation.
type SharedFacade struct {
	baseDir string
	cb      *dataset.ControlBlock

	// current is read without any lock by Generation()/accessors and
	// by CheckAndReload's fast path; it is only ever replaced while
	// holding dataMutex in write mode, so a reader that took dataMutex
	// in read mode (see the query gate) is guaranteed the pointer it
	// loaded stays valid for the query's duration.
	current atomic.Pointer[datasetHolder]

	// dataMutex is the per-process "data_mutex" of the dispatch
	// specification: readers (queries, via the gate) hold it in read
	// mode for the query's duration; CheckAndReload holds it in write
	// mode only while swapping the published pointer and releasing the
	// superseded region.
	dataMutex sync.RWMutex
}

// NewShared opens (creating if necessary) the control block at
// baseDir without attaching to any dataset region. A freshly created
// SharedFacade answers every query with DatasetUnavailable until a
// loader publishes a generation and the first query's
// CheckAndReload call attaches to it.
func NewShared(baseDir string) (*SharedFacade, error) {
	cb, err := dataset.OpenControlBlock(controlBlockPath(baseDir))
	if err != nil {
		return nil, err
	}
	return &SharedFacade{baseDir: baseDir, cb: cb}, nil
}

func controlBlockPath(baseDir string) string {
	return baseDir + "/control.dat"
}

// Close releases this process's control-block mapping and, if
// attached, the currently mapped dataset region.
func (f *SharedFacade) Close() error {
	if h := f.current.Load(); h != nil && h.closer != nil {
		h.closer()
	}
	return f.cb.Close()
}

// RLockData acquires data_mutex in read mode.
func (f *SharedFacade) RLockData() { f.dataMutex.RLock() }

// RUnlockData releases data_mutex's read lock.
func (f *SharedFacade) RUnlockData() { f.dataMutex.RUnlock() }

// CheckAndReload implements the facade's three-step reload protocol:
// read the control block's atomic snapshot; if it matches what's
// already attached, return immediately without taking any lock (the
// fast path Testable Property 4 requires); otherwise take the write
// lock, re-check (another thread may have just finished the same
// reload), attach to the newly current region, and release the
// superseded region now that no in-process reader can still be
// inside it (CheckAndReload itself holds the write lock, which
// excludes every reader holding the read lock).
func (f *SharedFacade) CheckAndReload() error {
	tag, gen := f.cb.Read()
	if f.attachedTo(tag, gen) {
		return nil
	}

	f.dataMutex.Lock()
	defer f.dataMutex.Unlock()

	// Re-read: another goroutine may have completed the reload while we
	// were waiting for the write lock.
	tag, gen = f.cb.Read()
	if f.attachedTo(tag, gen) {
		return nil
	}

	if gen == 0 {
		return datasetUnavailable("no dataset generation has been published")
	}

	newDs, closer, err := dataset.LoadRegion(f.baseDir, tag, gen)
	if err != nil {
		return datasetUnavailable("attach to region %s generation %d failed: %v", tag, gen, err)
	}

	old := f.current.Load()
	f.current.Store(&datasetHolder{ds: newDs, tag: tag, closer: closer})

	applog.Facade().Info().
		Str("region", tag.String()).
		Uint64("generation", gen).
		Msg("shared facade attached to new dataset generation")

	if old != nil && old.closer != nil {
		if err := old.closer(); err != nil {
			applog.Facade().Warn().Err(err).Str("region", old.tag.String()).Msg("failed to release superseded region")
		}
	}
	return nil
}

func (f *SharedFacade) attachedTo(tag dataset.RegionTag, gen uint64) bool {
	h := f.current.Load()
	return h != nil && h.tag == tag && h.ds.Generation() == gen
}

func (f *SharedFacade) holder() *datasetHolder { return f.current.Load() }

func (f *SharedFacade) Generation() uint64 {
	if h := f.holder(); h != nil {
		return h.ds.Generation()
	}
	return 0
}

func (f *SharedFacade) Adjacency(n dataset.NodeID) []dataset.Edge {
	if h := f.holder(); h != nil {
		return h.ds.Adjacency(n)
	}
	return nil
}

func (f *SharedFacade) EdgeWeight(e dataset.EdgeID) (uint32, bool) {
	if h := f.holder(); h != nil {
		return h.ds.EdgeWeight(e)
	}
	return 0, false
}

func (f *SharedFacade) EdgeEndpoints(e dataset.EdgeID) (dataset.NodeID, dataset.NodeID, bool) {
	if h := f.holder(); h != nil {
		return h.ds.EdgeEndpoints(e)
	}
	return 0, 0, false
}

func (f *SharedFacade) Geometry(e dataset.EdgeID) (geo.LineString, bool) {
	if h := f.holder(); h != nil {
		return h.ds.Geometry(e)
	}
	return nil, false
}

func (f *SharedFacade) Coordinate(n dataset.NodeID) (geo.Point, bool) {
	if h := f.holder(); h != nil {
		return h.ds.Coordinate(n)
	}
	return geo.Point{}, false
}

func (f *SharedFacade) Name(id uint32) (string, bool) {
	if h := f.holder(); h != nil {
		return h.ds.Name(id)
	}
	return "", false
}

func (f *SharedFacade) EdgeName(e dataset.EdgeID) (string, bool) {
	if h := f.holder(); h != nil {
		return h.ds.EdgeName(e)
	}
	return "", false
}

func (f *SharedFacade) NearestEdge(p geo.Point) (dataset.EdgeID, geo.Point, float64, bool) {
	if h := f.holder(); h != nil {
		return h.ds.NearestEdge(p)
	}
	return 0, geo.Point{}, 0, false
}

func (f *SharedFacade) NearestEdges(p geo.Point, n int) []dataset.NearestCandidate {
	if h := f.holder(); h != nil {
		return h.ds.NearestEdges(p, n)
	}
	return nil
}

var (
	_ Facade     = (*SharedFacade)(nil)
	_ Reloadable = (*SharedFacade)(nil)
	_ DataLocker = (*SharedFacade)(nil)
)
