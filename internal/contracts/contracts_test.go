package contracts

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Client) {
	t.Helper()

	client, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"), 5000, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.EnsureSchema(sqlite.CurrentSchemaVersion))

	return NewService(client, zap.NewNop()), client
}

func insertFeature(t *testing.T, client *sqlite.Client, windowEnd time.Time, value float64) {
	t.Helper()
	require.NoError(t, client.InsertFeatureRows([]models.FeatureRow{{
		WindowStart:       windowEnd.Add(-time.Hour),
		WindowEnd:         windowEnd,
		FeatureSetVersion: "v1",
		FeatureName:       "event_count",
		FeatureValue:      value,
		ComputedAt:        time.Now().UTC(),
	}}))
}

func insertLabel(t *testing.T, client *sqlite.Client, labelEnd time.Time, localDate, source string) {
	t.Helper()
	_, err := client.InsertLabel(&models.Label{
		LabelStart: labelEnd.Add(-8 * time.Hour),
		LabelEnd:   labelEnd,
		LocalDate:  localDate,
		Timezone:   "UTC",
		Source:     source,
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestPairingExcludesFutureWindows(t *testing.T) {
	service, client := newTestService(t)
	labelEnd := time.Date(2026, 2, 26, 6, 45, 0, 0, time.UTC)

	insertFeature(t, client, labelEnd.Add(-time.Hour), 1.0)   // before label end
	insertFeature(t, client, labelEnd, 2.0)                   // exactly at label end
	insertFeature(t, client, labelEnd.Add(time.Minute), 99.0) // sees past the label
	insertLabel(t, client, labelEnd, "2026-02-25", models.LabelSourceSleepWindow)

	pairs, err := service.GetValidFeatureLabelPairs()
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	for _, p := range pairs {
		assert.False(t, p.WindowEnd.After(p.LabelEnd), "leaked pair: window ends after label end")
		assert.NotEqual(t, 99.0, p.FeatureValue)
	}
}

func TestPairingIncludesEachValidPairOnce(t *testing.T) {
	service, client := newTestService(t)
	labelEnd := time.Date(2026, 2, 26, 6, 45, 0, 0, time.UTC)

	insertFeature(t, client, labelEnd.Add(-time.Hour), 1.0)
	insertLabel(t, client, labelEnd, "2026-02-25", models.LabelSourceSleepWindow)

	pairs, err := service.GetValidFeatureLabelPairs()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 1.0, pairs[0].FeatureValue)
}

func TestPairingOrderedByWindowEndThenID(t *testing.T) {
	service, client := newTestService(t)
	labelEnd := time.Date(2026, 2, 26, 6, 45, 0, 0, time.UTC)

	insertFeature(t, client, labelEnd.Add(-time.Hour), 2.0)
	insertFeature(t, client, labelEnd.Add(-3*time.Hour), 1.0)
	insertFeature(t, client, labelEnd.Add(-2*time.Hour), 3.0)
	insertLabel(t, client, labelEnd, "2026-02-25", models.LabelSourceSleepWindow)

	pairs, err := service.GetValidFeatureLabelPairs()
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	for i := 1; i < len(pairs); i++ {
		prev, cur := pairs[i-1], pairs[i]
		ordered := prev.WindowEnd.Before(cur.WindowEnd) ||
			(prev.WindowEnd.Equal(cur.WindowEnd) && prev.FeatureID < cur.FeatureID)
		assert.True(t, ordered, "pairs must be ordered by (window_end, feature id)")
	}
}

func TestValidateContracts(t *testing.T) {
	service, _ := newTestService(t)

	report, err := service.ValidateContracts()
	require.NoError(t, err)
	assert.Equal(t, "1", report.ContractVersion)
	assert.Equal(t, []string{
		"vw_bocpd_feature_stream",
		"vw_bocpd_latest_state",
		"vw_latest_feature_snapshot",
		"vw_lightgbm_latest_model_artifact",
		"vw_lightgbm_training_dataset",
	}, report.Views)
}
