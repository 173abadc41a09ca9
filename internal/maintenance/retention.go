package maintenance

import (
	"time"

	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/metrics"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

// Maintainer prunes aged raw events and feature rows. Labels are never
// deleted here; they are the permanent ground truth.
type Maintainer struct {
	client *sqlite.Client
	log    *zap.Logger
}

func NewMaintainer(client *sqlite.Client, log *zap.Logger) *Maintainer {
	return &Maintainer{client: client, log: log}
}

// RunRetention deletes raw events older than now-rawDays and feature rows
// whose window ended before now-featureDays, then stamps last_retention_at.
// Idempotent and safe to run repeatedly.
func (m *Maintainer) RunRetention(now time.Time, rawDays, featureDays int) (*models.RetentionReport, error) {
	now = now.UTC()
	rawCutoff := now.AddDate(0, 0, -rawDays)
	featureCutoff := now.AddDate(0, 0, -featureDays)

	rawDeleted, err := m.client.DeleteRawEventsBefore(rawCutoff)
	if err != nil {
		return nil, err
	}
	featuresDeleted, err := m.client.DeleteFeaturesBefore(featureCutoff)
	if err != nil {
		return nil, err
	}

	if err := m.client.SetMetadata("last_retention_at", now.Truncate(time.Second).Format(time.RFC3339)); err != nil {
		return nil, err
	}

	metrics.RetentionDeleted.WithLabelValues("raw_events").Add(float64(rawDeleted))
	metrics.RetentionDeleted.WithLabelValues("features").Add(float64(featuresDeleted))
	m.log.Info("retention maintenance completed",
		zap.Int64("raw_events_deleted", rawDeleted),
		zap.Int64("feature_rows_deleted", featuresDeleted),
		zap.Time("raw_cutoff", rawCutoff),
		zap.Time("feature_cutoff", featureCutoff),
	)

	return &models.RetentionReport{
		RawEventsDeleted:   rawDeleted,
		FeatureRowsDeleted: featuresDeleted,
	}, nil
}
