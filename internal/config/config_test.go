package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func TestStorageConfigValidateMissingPath(t *testing.T) {
	dir := t.TempDir()
	nodes := writeTempFile(t, dir, "nodes.dat", "x")

	sc := StorageConfig{Nodes: nodes} // edges/geometry/names/rtree unset
	err := sc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edges")
}

func TestStorageConfigValidateAllPresent(t *testing.T) {
	dir := t.TempDir()
	sc := StorageConfig{
		Nodes:    writeTempFile(t, dir, "nodes.dat", "x"),
		Edges:    writeTempFile(t, dir, "edges.dat", "x"),
		Geometry: writeTempFile(t, dir, "geometry.dat", "x"),
		Names:    writeTempFile(t, dir, "names.dat", "x"),
		RTree:    writeTempFile(t, dir, "rtree.dat", "x"),
	}
	assert.NoError(t, sc.Validate())
}

func TestLoadLocalModeRejectsInvalidStorage(t *testing.T) {
	t.Setenv("USE_SHARED_MEMORY", "false")
	t.Setenv("STORAGE_NODES_PATH", "")
	t.Setenv("STORAGE_EDGES_PATH", "")
	t.Setenv("STORAGE_GEOMETRY_PATH", "")
	t.Setenv("STORAGE_NAMES_PATH", "")
	t.Setenv("STORAGE_RTREE_PATH", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadSharedModeSkipsStorageValidation(t *testing.T) {
	t.Setenv("USE_SHARED_MEMORY", "true")
	t.Setenv("STORAGE_NODES_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.UseSharedMemory)
}

func TestLoadEnvOverridesYAMLDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeTempFile(t, dir, "config.yaml", "max_locations_trip: 5\nuse_shared_memory: true\n")

	t.Setenv("USE_SHARED_MEMORY", "")
	t.Setenv("MAX_LOCATIONS_TRIP", "42")

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.MaxLocationsTrip)
	assert.True(t, cfg.UseSharedMemory)
}
