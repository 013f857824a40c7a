package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherDisabledWithoutURL(t *testing.T) {
	p, err := NewPublisher(Config{})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.enabled)
}

func TestDisabledPublisherPublishMethodsAreNoOps(t *testing.T) {
	p, err := NewPublisher(Config{})
	require.NoError(t, err)

	assert.NoError(t, p.PublishDatasetPublished(context.Background(), "A", 7))
	assert.NoError(t, p.PublishDatasetSwapFailed(context.Background(), "A", 7, "drain timeout"))
	assert.NoError(t, p.Close())
}

func TestNewPublisherDegradesOnUnreachableURL(t *testing.T) {
	p, err := NewPublisher(Config{URL: "nats://127.0.0.1:1"})
	require.NoError(t, err)
	assert.False(t, p.enabled)
}

func TestDatasetPublishedEventJSONRoundTrips(t *testing.T) {
	event := DatasetPublishedEvent{
		EventID:    uuid.New().String(),
		Timestamp:  time.Now(),
		Region:     "A",
		Generation: 3,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded DatasetPublishedEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.Region, decoded.Region)
	assert.Equal(t, event.Generation, decoded.Generation)
}
