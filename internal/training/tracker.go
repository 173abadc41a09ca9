package training

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/features"
	"github.com/mossipcams/ha-ml-data-layer/internal/metrics"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

const noPointsNote = "no points"

// TrackerTrainer maintains the change-point tracker's state snapshot over
// the chronological event_count feature stream. The hazard rate is a
// caller-supplied tuning parameter stored for traceability, not derived.
type TrackerTrainer struct {
	client     *sqlite.Client
	hazardRate float64
	log        *zap.Logger
}

func NewTrackerTrainer(client *sqlite.Client, hazardRate float64, log *zap.Logger) *TrackerTrainer {
	return &TrackerTrainer{client: client, hazardRate: hazardRate, log: log}
}

// Run executes one tracker state job: skipped when the stream is empty,
// otherwise a compact (count, mean) snapshot is persisted with the run in
// one transaction.
func (t *TrackerTrainer) Run() (int64, string, error) {
	runUID := uuid.NewString()
	runID, err := t.client.InsertTrackerRun(runUID, time.Now().UTC())
	if err != nil {
		return 0, "", err
	}
	log := t.log.With(zap.Int64("run_id", runID), zap.String("run_uid", runUID))

	values, err := t.client.QueryFeatureStream(features.FeatureEventCount)
	if err != nil {
		return runID, models.RunStatusFailed, t.fail(runID, 0, err, log)
	}

	pointCount := len(values)
	if pointCount == 0 {
		err := t.client.FinishTrackerRun(runID, time.Now().UTC(), models.RunStatusSkipped, 0, noPointsNote)
		if err != nil {
			return runID, models.RunStatusFailed, t.fail(runID, 0, err, log)
		}
		metrics.TrainingRuns.WithLabelValues(models.JobTracker, models.RunStatusSkipped).Inc()
		log.Info("tracker state job skipped: empty feature stream")
		return runID, models.RunStatusSkipped, nil
	}

	state := &models.TrackerState{
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
		HazardRate: t.hazardRate,
		Payload: models.TrackerStatePayload{
			Count:          pointCount,
			MeanEventCount: mean(values),
		},
	}

	if err := t.client.CompleteTrackerRun(runID, time.Now().UTC(), pointCount, state); err != nil {
		return runID, models.RunStatusFailed, t.fail(runID, pointCount, err, log)
	}

	metrics.TrainingRuns.WithLabelValues(models.JobTracker, models.RunStatusCompleted).Inc()
	log.Info("tracker state job completed",
		zap.Int("point_count", pointCount),
		zap.Float64("mean_event_count", state.Payload.MeanEventCount),
		zap.Float64("hazard_rate", t.hazardRate),
	)
	return runID, models.RunStatusCompleted, nil
}

func (t *TrackerTrainer) fail(runID int64, pointCount int, cause error, log *zap.Logger) error {
	if err := t.client.FinishTrackerRun(runID, time.Now().UTC(), models.RunStatusFailed, pointCount, cause.Error()); err != nil {
		log.Warn("failed to mark tracker run as failed", zap.Error(err))
	}
	metrics.TrainingRuns.WithLabelValues(models.JobTracker, models.RunStatusFailed).Inc()
	log.Error("tracker state job failed", zap.Error(cause))
	return cause
}
