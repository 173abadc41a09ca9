package models

import "time"

// Training run statuses. Jobs write started, then exactly one of skipped,
// completed or failed. A run left at started indicates a crashed process.
const (
	RunStatusStarted   = "started"
	RunStatusSkipped   = "skipped"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Label sources. sleep_window is the positive class in the training dataset.
const LabelSourceSleepWindow = "sleep_window"

const (
	ModelTypeScorer = "lightgbm_like"
	JobScorer       = "lightgbm"
	JobTracker      = "bocpd"
)

type RawEvent struct {
	ID         int64
	EventType  string
	EntityID   string
	State      string
	Attributes map[string]any
	OccurredAt time.Time
	DedupeKey  string
	CreatedAt  time.Time
}

type FeatureRow struct {
	ID                int64
	WindowStart       time.Time
	WindowEnd         time.Time
	FeatureSetVersion string
	FeatureName       string
	FeatureValue      float64
	ComputedAt        time.Time
}

type Label struct {
	ID         int64
	LabelStart time.Time
	LabelEnd   time.Time
	LocalDate  string
	Timezone   string
	Source     string
	CreatedAt  time.Time
}

type TrainingRun struct {
	ID         int64
	RunUID     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	RowCount   int
	DayCount   int
	Notes      string
}

type ModelArtifact struct {
	ID                int64
	RunID             int64
	CreatedAt         time.Time
	ModelType         string
	FeatureSetVersion string
	Payload           ScorerArtifactPayload
}

type TrackerState struct {
	ID         int64
	RunID      int64
	CreatedAt  time.Time
	HazardRate float64
	Payload    TrackerStatePayload
}

// ScorerArtifactPayload is the serialized form of a trained scorer. Weights
// are ordered to match FeatureNames, which is sorted at serialization time.
type ScorerArtifactPayload struct {
	Model        ScorerModel `json:"model"`
	FeatureNames []string    `json:"feature_names"`
}

type ScorerModel struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

// TrackerStatePayload is the compact state snapshot persisted by the
// change-point tracker job.
type TrackerStatePayload struct {
	Count          int     `json:"count"`
	MeanEventCount float64 `json:"mean_event_count"`
}

// FeatureLabelPair is one row of the leakage-safe pairing join.
type FeatureLabelPair struct {
	FeatureID    int64
	LabelID      int64
	FeatureName  string
	FeatureValue float64
	WindowEnd    time.Time
	LabelEnd     time.Time
}

// TrainingExample is one row of the scorer training dataset view, with the
// derived binary target.
type TrainingExample struct {
	FeatureName  string
	FeatureValue float64
	Target       int
	LocalDate    string
}

type ContractReport struct {
	ContractVersion string
	Views           []string
}

type Diagnostics struct {
	Timestamp         time.Time
	RawEventCount     int64
	FeatureCount      int64
	LabelCount        int64
	ScorerLastStatus  string
	TrackerLastStatus string
	Degraded          bool
}

type RetentionReport struct {
	RawEventsDeleted   int64
	FeatureRowsDeleted int64
}
