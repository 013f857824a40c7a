package dataset

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// RegionDir returns the directory holding one shared-memory region's
// table files and self-describing manifest, given the shared facade's
// base directory and the region's tag.
func RegionDir(baseDir string, tag RegionTag) string {
	return filepath.Join(baseDir, "region-"+tag.String())
}

func regionPaths(dir string) LocalPaths {
	return LocalPaths{
		Nodes:    filepath.Join(dir, "nodes.dat"),
		Edges:    filepath.Join(dir, "edges.dat"),
		Geometry: filepath.Join(dir, "geometry.dat"),
		Names:    filepath.Join(dir, "names.dat"),
		RTree:    filepath.Join(dir, "rtree.dat"),
	}
}

func manifestPath(dir string) string {
	return filepath.Join(dir, "manifest.dat")
}

// writeManifest stamps a region directory with its self-describing
// generation id, so LoadRegion can verify it against the control
// block's claim after attaching (the "integrity failure" error
// condition of the facade's attach contract).
func writeManifest(dir string, generation uint64) error {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magicRegion[:])
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint64(buf[8:16], generation)
	return os.WriteFile(manifestPath(dir), buf, 0o644)
}

func readManifestGeneration(dir string) (uint64, error) {
	data, err := os.ReadFile(manifestPath(dir))
	if err != nil {
		return 0, fmt.Errorf("reading region manifest: %w", err)
	}
	return readHeader(data, magicRegion)
}

// WriteRegion writes a full dataset build (table files + manifest) to
// the region directory for the given tag, creating the directory if
// needed. This is the external loader's "prepare a new dataset in the
// non-current region" step (dispatch specification §4.5 step 1); it
// never touches the control block, so no attached reader observes it
// until Publish is called separately.
func WriteRegion(baseDir string, tag RegionTag, generation uint64, in BuildInput) error {
	dir := RegionDir(baseDir, tag)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating region directory: %w", err)
	}
	if err := WriteLocal(regionPaths(dir), in); err != nil {
		return err
	}
	return writeManifest(dir, generation)
}

// LoadRegion maps a region's table files and verifies its
// self-described generation matches expectedGeneration (the value just
// read from the control block). A mismatch means the loader is
// mid-write or the region was never published, and surfaces as the
// facade's DatasetUnavailable condition to the caller.
func LoadRegion(baseDir string, tag RegionTag, expectedGeneration uint64) (ds *Dataset, closer func() error, err error) {
	dir := RegionDir(baseDir, tag)

	gotGeneration, err := readManifestGeneration(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("attaching region %s: %w", tag, err)
	}
	if err := verifyGeneration(gotGeneration, expectedGeneration); err != nil {
		return nil, nil, fmt.Errorf("attaching region %s: %w", tag, err)
	}

	ds, closer, err = LoadLocal(regionPaths(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("attaching region %s: %w", tag, err)
	}
	ds.generation = gotGeneration
	return ds, closer, nil
}
