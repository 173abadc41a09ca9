package features

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/metrics"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

// Feature names written per window.
const (
	FeatureEventCount = "event_count"
	FeatureOnRatio    = "on_ratio"
)

// Engine computes per-window aggregates over raw events and appends them as
// immutable feature rows.
type Engine struct {
	client  *sqlite.Client
	onState string
	log     *zap.Logger
}

func NewEngine(client *sqlite.Client, onState string, log *zap.Logger) *Engine {
	if onState == "" {
		onState = "on"
	}
	return &Engine{client: client, onState: onState, log: log}
}

// ComputeWindowFeatures aggregates raw events with occurred_at in
// [windowStart, windowEnd) and writes one feature row per aggregate, all
// sharing the same computed_at. An empty window yields event_count 0 and
// on_ratio 0.0. Re-running a window appends new rows with the same values;
// callers are expected to run each window once.
func (e *Engine) ComputeWindowFeatures(windowStart, windowEnd time.Time, featureSetVersion string) (int, error) {
	if !windowStart.Before(windowEnd) {
		return 0, fmt.Errorf("window start %s must be before window end %s", windowStart, windowEnd)
	}

	states, err := e.client.ListRawEventStates(windowStart, windowEnd)
	if err != nil {
		return 0, err
	}

	eventCount := len(states)
	onCount := 0
	for _, state := range states {
		if state == e.onState {
			onCount++
		}
	}
	onRatio := 0.0
	if eventCount > 0 {
		onRatio = float64(onCount) / float64(eventCount)
	}

	computedAt := time.Now().UTC()
	rows := []models.FeatureRow{
		{
			WindowStart:       windowStart,
			WindowEnd:         windowEnd,
			FeatureSetVersion: featureSetVersion,
			FeatureName:       FeatureEventCount,
			FeatureValue:      float64(eventCount),
			ComputedAt:        computedAt,
		},
		{
			WindowStart:       windowStart,
			WindowEnd:         windowEnd,
			FeatureSetVersion: featureSetVersion,
			FeatureName:       FeatureOnRatio,
			FeatureValue:      onRatio,
			ComputedAt:        computedAt,
		},
	}

	if err := e.client.InsertFeatureRows(rows); err != nil {
		return 0, err
	}

	metrics.FeatureRowsWritten.Add(float64(len(rows)))
	e.log.Info("window features computed",
		zap.Time("window_start", windowStart),
		zap.Time("window_end", windowEnd),
		zap.Int("event_count", eventCount),
		zap.Float64("on_ratio", onRatio),
	)
	return len(rows), nil
}
