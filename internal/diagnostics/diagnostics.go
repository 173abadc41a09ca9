package diagnostics

import (
	"time"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

// Collector produces the read-only health summary. degraded is true iff the
// most recent run of either job family failed; that is the designed
// alerting signal.
type Collector struct {
	client *sqlite.Client
}

func NewCollector(client *sqlite.Client) *Collector {
	return &Collector{client: client}
}

func (c *Collector) Collect() (*models.Diagnostics, error) {
	rawCount, err := c.client.CountRawEvents()
	if err != nil {
		return nil, err
	}
	featureCount, err := c.client.CountFeatures()
	if err != nil {
		return nil, err
	}
	labelCount, err := c.client.CountLabels()
	if err != nil {
		return nil, err
	}
	scorerStatus, err := c.client.LastScorerRunStatus()
	if err != nil {
		return nil, err
	}
	trackerStatus, err := c.client.LastTrackerRunStatus()
	if err != nil {
		return nil, err
	}

	return &models.Diagnostics{
		Timestamp:         time.Now().UTC().Truncate(time.Second),
		RawEventCount:     rawCount,
		FeatureCount:      featureCount,
		LabelCount:        labelCount,
		ScorerLastStatus:  scorerStatus,
		TrackerLastStatus: trackerStatus,
		Degraded:          scorerStatus == models.RunStatusFailed || trackerStatus == models.RunStatusFailed,
	}, nil
}
