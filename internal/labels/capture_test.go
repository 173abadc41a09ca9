package labels

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

func newTestCapturer(t *testing.T) (*Capturer, *sqlite.Client) {
	t.Helper()

	client, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"), 5000, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.EnsureSchema(sqlite.CurrentSchemaVersion))

	return NewCapturer(client, zap.NewNop()), client
}

func TestCaptureLabelCrossMidnight(t *testing.T) {
	capturer, client := newTestCapturer(t)

	id, err := capturer.CaptureLabel("23:30:00", "06:45:00", "2026-02-25", "UTC")
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	labelCount, err := client.CountLabels()
	require.NoError(t, err)
	assert.Equal(t, int64(1), labelCount)

	// The end falls before the start on the same day, so it rolls to the
	// next calendar day.
	labelStart, labelEnd := readLabelBounds(t, client)
	assert.Equal(t, time.Date(2026, 2, 25, 23, 30, 0, 0, time.UTC), labelStart)
	assert.Equal(t, time.Date(2026, 2, 26, 6, 45, 0, 0, time.UTC), labelEnd)
}

func TestCaptureLabelSameDay(t *testing.T) {
	capturer, client := newTestCapturer(t)

	_, err := capturer.CaptureLabel("13:00:00", "14:30:00", "2026-02-25", "UTC")
	require.NoError(t, err)

	labelStart, labelEnd := readLabelBounds(t, client)
	assert.Equal(t, time.Date(2026, 2, 25, 13, 0, 0, 0, time.UTC), labelStart)
	assert.Equal(t, time.Date(2026, 2, 25, 14, 30, 0, 0, time.UTC), labelEnd)
}

func TestCaptureLabelConvertsTimezone(t *testing.T) {
	capturer, client := newTestCapturer(t)

	// 23:30 JST is 14:30 UTC the same day; the 06:45 end rolls past
	// midnight local time before conversion.
	_, err := capturer.CaptureLabel("23:30:00", "06:45:00", "2026-02-25", "Asia/Tokyo")
	require.NoError(t, err)

	labelStart, labelEnd := readLabelBounds(t, client)
	assert.Equal(t, time.Date(2026, 2, 25, 14, 30, 0, 0, time.UTC), labelStart)
	assert.Equal(t, time.Date(2026, 2, 25, 21, 45, 0, 0, time.UTC), labelEnd)
}

func TestCaptureLabelRejectsBadTimeFormat(t *testing.T) {
	capturer, _ := newTestCapturer(t)

	cases := []struct{ start, end string }{
		{"2330", "06:45:00"},
		{"23:30", "06:45:00"},
		{"23:30:00", "6.45.00"},
		{"aa:bb:cc", "06:45:00"},
		{"25:00:00", "06:45:00"},
		{"23:61:00", "06:45:00"},
	}
	for _, tc := range cases {
		_, err := capturer.CaptureLabel(tc.start, tc.end, "2026-02-25", "UTC")
		require.ErrorIs(t, err, ErrInvalidTimeFormat, "start=%q end=%q", tc.start, tc.end)
	}
}

func TestCaptureLabelRejectsUnknownTimezone(t *testing.T) {
	capturer, _ := newTestCapturer(t)

	_, err := capturer.CaptureLabel("23:30:00", "06:45:00", "2026-02-25", "Nowhere/Imaginary")
	require.Error(t, err)
}

func readLabelBounds(t *testing.T, client *sqlite.Client) (time.Time, time.Time) {
	t.Helper()

	labels, err := client.ListLabels()
	require.NoError(t, err)
	require.Len(t, labels, 1)
	return labels[0].LabelStart, labels[0].LabelEnd
}
