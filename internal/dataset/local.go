package dataset

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/osrm-go/routingd/internal/geo"
)

// LocalPaths names the on-disk table files backing a process-local
// dataset. It mirrors config.StorageConfig but lives in this package
// to avoid an import cycle; facade.NewLocal copies the
// config.StorageConfig fields into a LocalPaths.
type LocalPaths struct {
	Nodes    string
	Edges    string
	Geometry string
	Names    string
	RTree    string
}

// mappedFile is the handle kept alive for the lifetime of a
// mmap-go-backed dataset; Close unmaps and closes it.
type mappedFile struct {
	file *os.File
	data mmap.MMap
}

func openMapped(path string) (*mappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mappedFile{file: f, data: m}, nil
}

func (m *mappedFile) Close() error {
	if m == nil {
		return nil
	}
	errUnmap := m.data.Unmap()
	errClose := m.file.Close()
	if errUnmap != nil {
		return errUnmap
	}
	return errClose
}

// LoadLocal memory-maps the five table files and builds the
// accessor indices (adjacency, spatial index) over them. The returned
// Dataset carries generation 1: process-local datasets never version,
// since their lifetime equals the engine's.
//
// The mapped regions are kept open for the Dataset's lifetime; closer
// returns a function that unmaps everything, to be called from the
// owning LocalFacade's Close.
func LoadLocal(paths LocalPaths) (ds *Dataset, closer func() error, err error) {
	nodesFile, err := openMapped(paths.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("mapping nodes table: %w", err)
	}
	edgesFile, err := openMapped(paths.Edges)
	if err != nil {
		nodesFile.Close()
		return nil, nil, fmt.Errorf("mapping edges table: %w", err)
	}
	geometryFile, err := openMapped(paths.Geometry)
	if err != nil {
		nodesFile.Close()
		edgesFile.Close()
		return nil, nil, fmt.Errorf("mapping geometry table: %w", err)
	}
	namesFile, err := openMapped(paths.Names)
	if err != nil {
		nodesFile.Close()
		edgesFile.Close()
		geometryFile.Close()
		return nil, nil, fmt.Errorf("mapping names table: %w", err)
	}
	rtreeFile, err := openMapped(paths.RTree)
	if err != nil {
		nodesFile.Close()
		edgesFile.Close()
		geometryFile.Close()
		namesFile.Close()
		return nil, nil, fmt.Errorf("mapping rtree table: %w", err)
	}

	closeAll := func() error {
		var firstErr error
		for _, m := range []*mappedFile{nodesFile, edgesFile, geometryFile, namesFile, rtreeFile} {
			if err := m.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	ds, err = buildDataset(1, nodesFile.data, edgesFile.data, geometryFile.data, namesFile.data, rtreeFile.data)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return ds, closeAll, nil
}

// buildDataset decodes the mapped table byte slices into a fully
// indexed, immutable Dataset. The spatial index is decoded directly
// from its persisted table rather than rebuilt from edges/geometry,
// mirroring how a precomputed R-tree file is reattached rather than
// regenerated on every load.
func buildDataset(generation uint64, nodesData, edgesData, geometryData, namesData, rtreeData []byte) (*Dataset, error) {
	nodes, err := decodeNodes(nodesData)
	if err != nil {
		return nil, err
	}
	edges, err := decodeEdges(edgesData)
	if err != nil {
		return nil, err
	}
	geomPoints, err := decodeGeometry(geometryData)
	if err != nil {
		return nil, err
	}
	names, err := decodeNames(namesData)
	if err != nil {
		return nil, err
	}
	index, err := decodeSpatialIndex(rtreeData)
	if err != nil {
		return nil, err
	}

	coords := make([]geo.Point, len(nodes))
	for i, n := range nodes {
		coords[i] = geo.Point{Lon: n.lon, Lat: n.lat}
	}
	geomFlat := make([]geo.Point, len(geomPoints))
	for i, p := range geomPoints {
		geomFlat[i] = geo.Point{Lon: p.lon, Lat: p.lat}
	}

	ds := &Dataset{
		generation:  generation,
		coordinates: coords,
		edges:       edges,
		adjacency:   buildAdjacency(len(coords), edges),
		geometry:    geomFlat,
		names:       names,
		index:       index,
	}
	return ds, nil
}

// WriteLocal serializes an in-memory BuildInput to the five table
// files named by paths. It is the dataset-building counterpart of
// LoadLocal, used by tests and by any out-of-core preprocessing tool
// to produce fixture datasets; the dispatch core itself never writes a
// dataset (plugins are read-only, per the facade contract).
func WriteLocal(paths LocalPaths, in BuildInput) error {
	nodePts := make([]float64lonlat, len(in.Nodes))
	for i, p := range in.Nodes {
		nodePts[i] = float64lonlat{lon: p.Lon, lat: p.Lat}
	}
	geomPts := make([]float64lonlat, len(in.Geometry))
	for i, p := range in.Geometry {
		geomPts[i] = float64lonlat{lon: p.Lon, lat: p.Lat}
	}

	index := buildSpatialIndex(in.Edges, in.Geometry)

	writes := []struct {
		path string
		data []byte
	}{
		{paths.Nodes, encodeNodes(nodePts)},
		{paths.Edges, encodeEdges(in.Edges)},
		{paths.Geometry, encodeGeometry(geomPts)},
		{paths.Names, encodeNames(in.Names)},
		{paths.RTree, encodeSpatialIndex(index)},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, w.data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", w.path, err)
		}
	}
	return nil
}

// BuildInput is the plain-Go description of a dataset used to build
// fixture table files (WriteLocal/WriteRegion) without hand-rolling
// the binary format.
type BuildInput struct {
	Nodes    []geo.Point
	Edges    []edgeRecord
	Geometry []geo.Point
	Names    []string
}

// NewEdgeRecord constructs an edgeRecord from exported field values;
// exists so callers outside this package (tests, the loader CLI) can
// build BuildInput.Edges without edgeRecord's fields being exported
// more broadly than accessors need.
func NewEdgeRecord(source, target NodeID, weight, nameID, geomFrom, geomTo uint32) edgeRecord {
	return edgeRecord{
		Source:   source,
		Target:   target,
		Weight:   weight,
		NameID:   nameID,
		GeomFrom: geomFrom,
		GeomTo:   geomTo,
	}
}
