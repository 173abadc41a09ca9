package training

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

func TestTrackerSkipsWithoutPoints(t *testing.T) {
	client := newTestClient(t)

	trainer := NewTrackerTrainer(client, 0.1, zap.NewNop())
	runID, status, err := trainer.Run()
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))
	assert.Equal(t, models.RunStatusSkipped, status)

	lastStatus, err := client.LastTrackerRunStatus()
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSkipped, lastStatus)

	_, err = client.LatestTrackerState()
	require.ErrorIs(t, err, sqlite.ErrNoArtifact)
}

func TestTrackerPersistsStateSnapshot(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2026, 2, 25, 8, 0, 0, 0, time.UTC)

	insertFeature(t, client, base, "event_count", 2.0)
	insertFeature(t, client, base.Add(time.Hour), "event_count", 4.0)
	insertFeature(t, client, base.Add(2*time.Hour), "on_ratio", 0.5) // different feature, ignored

	trainer := NewTrackerTrainer(client, 0.25, zap.NewNop())
	runID, status, err := trainer.Run()
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, status)

	state, err := client.LatestTrackerState()
	require.NoError(t, err)
	assert.Equal(t, runID, state.RunID)
	assert.Equal(t, 0.25, state.HazardRate, "hazard rate is stored as supplied, not derived")
	assert.Equal(t, 2, state.Payload.Count)
	assert.InDelta(t, 3.0, state.Payload.MeanEventCount, 1e-9)
}

func TestTrackerConsumesStreamChronologically(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2026, 2, 25, 8, 0, 0, 0, time.UTC)

	// Insert out of chronological order; the stream view re-orders.
	insertFeature(t, client, base.Add(2*time.Hour), "event_count", 6.0)
	insertFeature(t, client, base, "event_count", 2.0)
	insertFeature(t, client, base.Add(time.Hour), "event_count", 4.0)

	values, err := client.QueryFeatureStream("event_count")
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0, 4.0, 6.0}, values)

	trainer := NewTrackerTrainer(client, 0.1, zap.NewNop())
	_, status, err := trainer.Run()
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, status)

	state, err := client.LatestTrackerState()
	require.NoError(t, err)
	assert.Equal(t, 3, state.Payload.Count)
	assert.InDelta(t, 4.0, state.Payload.MeanEventCount, 1e-9)
}
