package labels

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/metrics"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

// ErrInvalidTimeFormat is returned when a boundary time string is not
// HH:MM:SS.
var ErrInvalidTimeFormat = errors.New("time must be HH:MM:SS")

// Capturer converts externally supplied local sleep-window boundaries into
// UTC label rows. Labels are the permanent ground truth; nothing deletes
// them.
type Capturer struct {
	client *sqlite.Client
	log    *zap.Logger
}

func NewCapturer(client *sqlite.Client, log *zap.Logger) *Capturer {
	return &Capturer{client: client, log: log}
}

// CaptureLabel parses the two boundary times against localDate in the named
// timezone and stores the resulting UTC interval. When the end does not fall
// after the start, the end is advanced one calendar day to handle spans
// crossing midnight.
func (c *Capturer) CaptureLabel(sleepStart, sleepEnd, localDate, timezoneName string) (int64, error) {
	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		return 0, fmt.Errorf("failed to load timezone %q: %w", timezoneName, err)
	}

	startH, startM, startS, err := parseTimeHMS(sleepStart)
	if err != nil {
		return 0, err
	}
	endH, endM, endS, err := parseTimeHMS(sleepEnd)
	if err != nil {
		return 0, err
	}

	day, err := time.ParseInLocation("2006-01-02", localDate, loc)
	if err != nil {
		return 0, fmt.Errorf("failed to parse local date %q: %w", localDate, err)
	}

	startLocal := time.Date(day.Year(), day.Month(), day.Day(), startH, startM, startS, 0, loc)
	endLocal := time.Date(day.Year(), day.Month(), day.Day(), endH, endM, endS, 0, loc)
	if !endLocal.After(startLocal) {
		endLocal = endLocal.AddDate(0, 0, 1)
	}

	label := &models.Label{
		LabelStart: startLocal.UTC(),
		LabelEnd:   endLocal.UTC(),
		LocalDate:  localDate,
		Timezone:   timezoneName,
		Source:     models.LabelSourceSleepWindow,
		CreatedAt:  time.Now().UTC(),
	}

	id, err := c.client.InsertLabel(label)
	if err != nil {
		return 0, err
	}

	metrics.LabelsCaptured.Inc()
	c.log.Info("label captured",
		zap.Int64("id", id),
		zap.String("local_date", localDate),
		zap.Time("label_start", label.LabelStart),
		zap.Time("label_end", label.LabelEnd),
	)
	return id, nil
}

func parseTimeHMS(value string) (int, int, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}

	var hms [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
		}
		hms[i] = n
	}
	if hms[0] < 0 || hms[0] > 23 || hms[1] < 0 || hms[1] > 59 || hms[2] < 0 || hms[2] > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	return hms[0], hms[1], hms[2], nil
}
