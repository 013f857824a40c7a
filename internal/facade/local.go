package facade

import (
	"fmt"

	"github.com/osrm-go/routingd/internal/config"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/geo"
)

// LocalFacade exclusively owns a Dataset loaded from a fixed set of
// file paths at construction. Its generation id never changes: a
// local engine's dataset lifetime equals the engine's.
type LocalFacade struct {
	ds     *dataset.Dataset
	closer func() error
}

// NewLocal loads a dataset from cfg's file paths. Construction fails
// with a ConfigInvalid-classed error if any required path is missing
// or unreadable, matching the dispatch specification's local-variant
// contract; the engine must not be created in that case.
func NewLocal(cfg config.StorageConfig) (*LocalFacade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", "ConfigInvalid", err)
	}

	paths := dataset.LocalPaths{
		Nodes:    cfg.Nodes,
		Edges:    cfg.Edges,
		Geometry: cfg.Geometry,
		Names:    cfg.Names,
		RTree:    cfg.RTree,
	}
	ds, closer, err := dataset.LoadLocal(paths)
	if err != nil {
		return nil, fmt.Errorf("ConfigInvalid: %w", err)
	}

	return &LocalFacade{ds: ds, closer: closer}, nil
}

// Close unmaps the dataset's mapped table files. Called from the
// owning engine's Close.
func (f *LocalFacade) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer()
}

func (f *LocalFacade) Generation() uint64 { return f.ds.Generation() }

func (f *LocalFacade) Adjacency(n dataset.NodeID) []dataset.Edge { return f.ds.Adjacency(n) }

func (f *LocalFacade) EdgeWeight(e dataset.EdgeID) (uint32, bool) { return f.ds.EdgeWeight(e) }

func (f *LocalFacade) EdgeEndpoints(e dataset.EdgeID) (dataset.NodeID, dataset.NodeID, bool) {
	return f.ds.EdgeEndpoints(e)
}

func (f *LocalFacade) Geometry(e dataset.EdgeID) (geo.LineString, bool) { return f.ds.Geometry(e) }

func (f *LocalFacade) Coordinate(n dataset.NodeID) (geo.Point, bool) { return f.ds.Coordinate(n) }

func (f *LocalFacade) Name(id uint32) (string, bool) { return f.ds.Name(id) }

func (f *LocalFacade) EdgeName(e dataset.EdgeID) (string, bool) { return f.ds.EdgeName(e) }

func (f *LocalFacade) NearestEdge(p geo.Point) (dataset.EdgeID, geo.Point, float64, bool) {
	return f.ds.NearestEdge(p)
}

func (f *LocalFacade) NearestEdges(p geo.Point, n int) []dataset.NearestCandidate {
	return f.ds.NearestEdges(p, n)
}

var _ Facade = (*LocalFacade)(nil)
