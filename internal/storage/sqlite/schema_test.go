package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), 5000, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestEnsureSchemaCreatesTablesAndViews(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.EnsureSchema(CurrentSchemaVersion))

	views, err := client.ListViewNames()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"vw_bocpd_feature_stream",
		"vw_bocpd_latest_state",
		"vw_latest_feature_snapshot",
		"vw_lightgbm_latest_model_artifact",
		"vw_lightgbm_training_dataset",
	}, views)

	for key, want := range map[string]string{
		"schema_version":      "1",
		"feature_set_version": "v1",
		"contract_version":    "1",
	} {
		value, ok, err := client.GetMetadata(key)
		require.NoError(t, err)
		require.True(t, ok, "metadata key %s missing", key)
		assert.Equal(t, want, value)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.EnsureSchema(CurrentSchemaVersion))
	require.NoError(t, client.EnsureSchema(CurrentSchemaVersion))

	views, err := client.ListViewNames()
	require.NoError(t, err)
	assert.Len(t, views, 5)
}

func TestEnsureSchemaRejectsUnsupportedVersion(t *testing.T) {
	client := newTestClient(t)

	err := client.EnsureSchema(2)
	require.ErrorIs(t, err, ErrUnsupportedSchemaVersion)

	err = client.EnsureSchema(0)
	require.ErrorIs(t, err, ErrUnsupportedSchemaVersion)
}

func TestSetMetadataUpserts(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.EnsureSchema(CurrentSchemaVersion))

	require.NoError(t, client.SetMetadata("last_ingest_at", "2026-02-25T00:00:00Z"))
	require.NoError(t, client.SetMetadata("last_ingest_at", "2026-02-26T00:00:00Z"))

	value, ok, err := client.GetMetadata("last_ingest_at")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-02-26T00:00:00Z", value)
}

func TestGetMetadataMissingKey(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.EnsureSchema(CurrentSchemaVersion))

	_, ok, err := client.GetMetadata("no_such_key")
	require.NoError(t, err)
	assert.False(t, ok)
}
