package loader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osrm-go/routingd/internal/barriers"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/geo"
)

func fixtureInput() dataset.BuildInput {
	in := dataset.BuildInput{
		Nodes:    []geo.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}},
		Geometry: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}},
		Names:    []string{"Main Street"},
	}
	in.Edges = append(in.Edges, dataset.NewEdgeRecord(0, 1, 100, 0, 0, 2))
	return in
}

func TestLoaderPublishWritesRegionAndControlBlock(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Publish(context.Background(), dataset.RegionA, 1, fixtureInput()))

	ds, closer, err := dataset.LoadRegion(dir, dataset.RegionA, 1)
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, uint64(1), ds.Generation())
}

func TestLoaderNextRegionAlternates(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, dataset.RegionA, l.NextRegion())

	require.NoError(t, l.Publish(context.Background(), dataset.RegionA, 1, fixtureInput()))
	assert.Equal(t, dataset.RegionB, l.NextRegion())
}

// TestLoaderPublishBlocksUntilQueriesDrain exercises Scenario 4 of the
// dispatch specification: a loader publish blocks while a simulated
// in-flight query holds the counter above zero, and proceeds the
// instant it drains.
func TestLoaderPublishBlocksUntilQueriesDrain(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	reader, err := barriers.Open(dir)
	require.NoError(t, err)
	defer reader.Close()

	ctx := context.Background()
	require.NoError(t, reader.LockQuery(ctx))
	reader.IncrementQueries()
	require.NoError(t, reader.UnlockQuery())

	published := make(chan error, 1)
	go func() {
		published <- l.Publish(context.Background(), dataset.RegionA, 1, fixtureInput())
	}()

	select {
	case <-published:
		t.Fatal("publish returned before the in-flight query drained")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, reader.LockQuery(ctx))
	reader.DecrementQueries()
	require.NoError(t, reader.UnlockQuery())

	select {
	case err := <-published:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("publish did not complete after query drained")
	}
}

func TestLoaderStartStopProcessesQueuedPublish(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	go l.Start()
	defer l.Stop()

	require.NoError(t, l.Enqueue(context.Background(), dataset.RegionA, 1, fixtureInput()))

	ds, closer, err := dataset.LoadRegion(dir, dataset.RegionA, 1)
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, uint64(1), ds.Generation())
}
