package training

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/metrics"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

const gateNotMetNote = "training gate not met"

type ScorerOptions struct {
	MinLabeledRows    int
	MinLabeledDays    int
	FeatureSetVersion string
}

// ScorerTrainer fits the mean-difference scorer baseline over the
// leakage-safe training dataset, gated by data-sufficiency thresholds.
type ScorerTrainer struct {
	client *sqlite.Client
	opts   ScorerOptions
	log    *zap.Logger
}

func NewScorerTrainer(client *sqlite.Client, opts ScorerOptions, log *zap.Logger) *ScorerTrainer {
	if opts.FeatureSetVersion == "" {
		opts.FeatureSetVersion = sqlite.DefaultFeatureSetVersion
	}
	return &ScorerTrainer{client: client, opts: opts, log: log}
}

// Run executes one scorer training job. It inserts a started run row, then
// finishes it as skipped (gate not met), completed (artifact written in the
// same transaction) or failed (storage error after start).
func (t *ScorerTrainer) Run() (int64, string, error) {
	runUID := uuid.NewString()
	runID, err := t.client.InsertScorerRun(runUID, time.Now().UTC())
	if err != nil {
		return 0, "", err
	}
	log := t.log.With(zap.Int64("run_id", runID), zap.String("run_uid", runUID))

	examples, err := t.client.QueryTrainingDataset()
	if err != nil {
		return runID, models.RunStatusFailed, t.fail(runID, 0, 0, err, log)
	}

	rowCount := len(examples)
	days := map[string]struct{}{}
	for _, ex := range examples {
		days[ex.LocalDate] = struct{}{}
	}
	dayCount := len(days)

	if rowCount < t.opts.MinLabeledRows || dayCount < t.opts.MinLabeledDays {
		err := t.client.FinishScorerRun(runID, time.Now().UTC(), models.RunStatusSkipped, rowCount, dayCount, gateNotMetNote)
		if err != nil {
			return runID, models.RunStatusFailed, t.fail(runID, rowCount, dayCount, err, log)
		}
		metrics.TrainingRuns.WithLabelValues(models.JobScorer, models.RunStatusSkipped).Inc()
		log.Info("scorer training skipped",
			zap.Int("row_count", rowCount),
			zap.Int("day_count", dayCount),
			zap.Int("min_labeled_rows", t.opts.MinLabeledRows),
			zap.Int("min_labeled_days", t.opts.MinLabeledDays),
		)
		return runID, models.RunStatusSkipped, nil
	}

	payload := fitMeanDifference(examples)
	now := time.Now().UTC()
	artifact := &models.ModelArtifact{
		RunID:             runID,
		CreatedAt:         now,
		ModelType:         models.ModelTypeScorer,
		FeatureSetVersion: t.opts.FeatureSetVersion,
		Payload:           payload,
	}

	if err := t.client.CompleteScorerRun(runID, now, rowCount, dayCount, artifact); err != nil {
		return runID, models.RunStatusFailed, t.fail(runID, rowCount, dayCount, err, log)
	}

	metrics.TrainingRuns.WithLabelValues(models.JobScorer, models.RunStatusCompleted).Inc()
	log.Info("scorer training completed",
		zap.Int("row_count", rowCount),
		zap.Int("day_count", dayCount),
		zap.Strings("feature_names", payload.FeatureNames),
	)
	return runID, models.RunStatusCompleted, nil
}

// fitMeanDifference computes per-feature weights as
// mean(value | target=1) - mean(value | target=0), with weights ordered by
// the sorted feature names fixed at serialization time.
func fitMeanDifference(examples []models.TrainingExample) models.ScorerArtifactPayload {
	positive := map[string][]float64{}
	negative := map[string][]float64{}
	for _, ex := range examples {
		if ex.Target == 1 {
			positive[ex.FeatureName] = append(positive[ex.FeatureName], ex.FeatureValue)
		} else {
			negative[ex.FeatureName] = append(negative[ex.FeatureName], ex.FeatureValue)
		}
	}

	names := map[string]struct{}{}
	for name := range positive {
		names[name] = struct{}{}
	}
	for name := range negative {
		names[name] = struct{}{}
	}

	featureNames := make([]string, 0, len(names))
	for name := range names {
		featureNames = append(featureNames, name)
	}
	sort.Strings(featureNames)

	weights := make([]float64, len(featureNames))
	for i, name := range featureNames {
		weights[i] = mean(positive[name]) - mean(negative[name])
	}

	return models.ScorerArtifactPayload{
		Model:        models.ScorerModel{Intercept: 0.0, Weights: weights},
		FeatureNames: featureNames,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func (t *ScorerTrainer) fail(runID int64, rowCount, dayCount int, cause error, log *zap.Logger) error {
	if err := t.client.FinishScorerRun(runID, time.Now().UTC(), models.RunStatusFailed, rowCount, dayCount, cause.Error()); err != nil {
		log.Warn("failed to mark scorer run as failed", zap.Error(err))
	}
	metrics.TrainingRuns.WithLabelValues(models.JobScorer, models.RunStatusFailed).Inc()
	log.Error("scorer training failed", zap.Error(cause))
	return cause
}
