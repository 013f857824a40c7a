// Package facade implements the dataset facade: the sole channel
// through which plugins read the road-network dataset. Two concrete
// variants exist — LocalFacade, which owns a dataset loaded from local
// files for the engine's lifetime, and SharedFacade, which attaches to
// a dataset published in shared memory and can hot-swap to a newer
// generation between queries.
package facade

import (
	"github.com/osrm-go/routingd/internal/apierr"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/geo"
)

// Facade is the read-only accessor contract every plugin consumes. No
// method allocates shared state, and every method is safe for
// concurrent callers holding a valid facade snapshot (see the query
// gate in internal/gate for what "valid snapshot" means for the
// shared variant).
type Facade interface {
	// Generation returns the dataset generation this facade currently
	// observes. For a query gate's purposes, it must not change partway
	// through a single query.
	Generation() uint64

	Adjacency(n dataset.NodeID) []dataset.Edge
	EdgeWeight(e dataset.EdgeID) (uint32, bool)
	EdgeEndpoints(e dataset.EdgeID) (dataset.NodeID, dataset.NodeID, bool)
	Geometry(e dataset.EdgeID) (geo.LineString, bool)
	Coordinate(n dataset.NodeID) (geo.Point, bool)
	Name(id uint32) (string, bool)
	EdgeName(e dataset.EdgeID) (string, bool)
	NearestEdge(p geo.Point) (dataset.EdgeID, geo.Point, float64, bool)
	NearestEdges(p geo.Point, n int) []dataset.NearestCandidate
}

// Reloadable is implemented by facade variants that may need to
// re-attach to a newer dataset generation before a query proceeds. The
// local variant does not implement it (its generation is fixed for
// life). SharedFacade implements it, and the shared query gate calls
// CheckAndReload directly on its *SharedFacade.
type Reloadable interface {
	CheckAndReload() error
}

// DataLocker is implemented by facade variants whose mapped dataset
// pages can be invalidated by an in-process reload. The query gate
// acquires the read lock for the duration of the plugin call and
// releases it afterward; the facade's own accessor methods are
// lock-free (reading an atomically-published pointer to an immutable
// Dataset), so this lock exists solely to keep a superseded region
// from being unmapped while a reader is still inside it — not to
// serialize accessor calls against each other.
type DataLocker interface {
	RLockData()
	RUnlockData()
}

// datasetUnavailable builds a DatasetUnavailable status-shaped error message;
// kept here since both facade variants report attach/verify failures
// the same way.
func datasetUnavailable(format string, args ...any) error {
	return apierr.Error(apierr.DatasetUnavailable, format, args...)
}
