package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/contracts"
	"github.com/mossipcams/ha-ml-data-layer/internal/diagnostics"
	"github.com/mossipcams/ha-ml-data-layer/internal/features"
	"github.com/mossipcams/ha-ml-data-layer/internal/ingest"
	"github.com/mossipcams/ha-ml-data-layer/internal/labels"
	"github.com/mossipcams/ha-ml-data-layer/internal/maintenance"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
	"github.com/mossipcams/ha-ml-data-layer/internal/training"
	"github.com/mossipcams/ha-ml-data-layer/pkg/config"
)

// DataLayer composes the components into the two external entry points: one
// event and one nightly pipeline invocation. Callers must not run two
// nightly pipelines concurrently against the same store.
type DataLayer struct {
	cfg        *config.Config
	recorder   *ingest.Recorder
	engine     *features.Engine
	capturer   *labels.Capturer
	contracts  *contracts.Service
	scorer     *training.ScorerTrainer
	tracker    *training.TrackerTrainer
	maintainer *maintenance.Maintainer
	collector  *diagnostics.Collector
	log        *zap.Logger
}

func New(client *sqlite.Client, cfg *config.Config, log *zap.Logger) *DataLayer {
	return &DataLayer{
		cfg:       cfg,
		recorder:  ingest.NewRecorder(client, log),
		engine:    features.NewEngine(client, cfg.Features.OnState, log),
		capturer:  labels.NewCapturer(client, log),
		contracts: contracts.NewService(client, log),
		scorer: training.NewScorerTrainer(client, training.ScorerOptions{
			MinLabeledRows:    cfg.Training.MinLabeledRows,
			MinLabeledDays:    cfg.Training.MinLabeledDays,
			FeatureSetVersion: cfg.Features.SetVersion,
		}, log),
		tracker:    training.NewTrackerTrainer(client, cfg.Training.HazardRate, log),
		maintainer: maintenance.NewMaintainer(client, log),
		collector:  diagnostics.NewCollector(client),
		log:        log,
	}
}

// HandleEvent is the ingestion entry point for the external event source.
func (d *DataLayer) HandleEvent(eventType, entityID, state string, attributes map[string]any, occurredAt time.Time) (int64, bool, error) {
	return d.recorder.RecordRawEvent(eventType, entityID, state, attributes, occurredAt)
}

// RunNightlyPipeline runs the fixed nightly sequence: feature windowing,
// label capture, scorer training, tracker state update. The scorer depends
// on both fresh features and fresh labels, so the order is not negotiable.
func (d *DataLayer) RunNightlyPipeline(localDate, sleepStart, sleepEnd string, windowStart, windowEnd time.Time) error {
	d.log.Info("nightly pipeline starting", zap.String("local_date", localDate))

	if _, err := d.engine.ComputeWindowFeatures(windowStart, windowEnd, d.cfg.Features.SetVersion); err != nil {
		return err
	}
	if _, err := d.capturer.CaptureLabel(sleepStart, sleepEnd, localDate, d.cfg.Labels.Timezone); err != nil {
		return err
	}
	if _, _, err := d.scorer.Run(); err != nil {
		return err
	}
	if _, _, err := d.tracker.Run(); err != nil {
		return err
	}

	d.log.Info("nightly pipeline finished", zap.String("local_date", localDate))
	return nil
}

// RunRetention prunes aged raw events and feature rows using the configured
// horizons.
func (d *DataLayer) RunRetention(now time.Time) (*models.RetentionReport, error) {
	return d.maintainer.RunRetention(now, d.cfg.Retention.RawDays, d.cfg.Retention.FeatureDays)
}

// Diagnostics returns the read-only health summary.
func (d *DataLayer) Diagnostics() (*models.Diagnostics, error) {
	return d.collector.Collect()
}

// ValidateContracts reports the contract version and exposed views.
func (d *DataLayer) ValidateContracts() (*models.ContractReport, error) {
	return d.contracts.ValidateContracts()
}
