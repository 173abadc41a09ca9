package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
)

// ErrNoArtifact is returned when no model artifact has been persisted yet.
var ErrNoArtifact = errors.New("no model artifact available")

// InsertScorerRun opens a scorer training run in status started.
func (c *Client) InsertScorerRun(runUID string, startedAt time.Time) (int64, error) {
	query := `
		INSERT INTO lightgbm_training_runs (run_uid, started_at_utc, status, row_count, day_count, notes)
		VALUES (?, ?, ?, 0, 0, '')
	`

	res, err := c.db.Exec(query, runUID, isoUTC(startedAt), models.RunStatusStarted)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scorer run: %w", err)
	}
	return res.LastInsertId()
}

// FinishScorerRun closes a scorer run without writing an artifact (skipped
// or failed outcomes).
func (c *Client) FinishScorerRun(runID int64, finishedAt time.Time, status string, rowCount, dayCount int, notes string) error {
	query := `
		UPDATE lightgbm_training_runs
		SET finished_at_utc = ?, status = ?, row_count = ?, day_count = ?, notes = ?
		WHERE id = ?
	`

	_, err := c.db.Exec(query, isoUTC(finishedAt), status, rowCount, dayCount, notes, runID)
	if err != nil {
		return fmt.Errorf("failed to finish scorer run: %w", err)
	}
	return nil
}

// CompleteScorerRun persists the artifact and marks the run completed in one
// transaction so no partial artifact is ever visible.
func (c *Client) CompleteScorerRun(runID int64, finishedAt time.Time, rowCount, dayCount int, artifact *models.ModelArtifact) error {
	payloadJSON, err := json.Marshal(artifact.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize artifact payload: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO lightgbm_model_artifacts (run_id, created_at_utc, model_type, feature_set_version, artifact_json)
		 VALUES (?, ?, ?, ?, ?)`,
		runID,
		isoUTC(artifact.CreatedAt),
		artifact.ModelType,
		artifact.FeatureSetVersion,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert model artifact: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE lightgbm_training_runs
		 SET finished_at_utc = ?, status = ?, row_count = ?, day_count = ?, notes = 'ok'
		 WHERE id = ?`,
		isoUTC(finishedAt),
		models.RunStatusCompleted,
		rowCount,
		dayCount,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete scorer run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scorer run: %w", err)
	}
	return nil
}

// InsertTrackerRun opens a change-point tracker run in status started.
func (c *Client) InsertTrackerRun(runUID string, startedAt time.Time) (int64, error) {
	query := `
		INSERT INTO bocpd_training_runs (run_uid, started_at_utc, status, point_count, notes)
		VALUES (?, ?, ?, 0, '')
	`

	res, err := c.db.Exec(query, runUID, isoUTC(startedAt), models.RunStatusStarted)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tracker run: %w", err)
	}
	return res.LastInsertId()
}

func (c *Client) FinishTrackerRun(runID int64, finishedAt time.Time, status string, pointCount int, notes string) error {
	query := `
		UPDATE bocpd_training_runs
		SET finished_at_utc = ?, status = ?, point_count = ?, notes = ?
		WHERE id = ?
	`

	_, err := c.db.Exec(query, isoUTC(finishedAt), status, pointCount, notes, runID)
	if err != nil {
		return fmt.Errorf("failed to finish tracker run: %w", err)
	}
	return nil
}

// CompleteTrackerRun persists the state snapshot and marks the run completed
// in one transaction.
func (c *Client) CompleteTrackerRun(runID int64, finishedAt time.Time, pointCount int, state *models.TrackerState) error {
	stateJSON, err := json.Marshal(state.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize tracker state: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO bocpd_model_state (run_id, created_at_utc, hazard_rate, state_json)
		 VALUES (?, ?, ?, ?)`,
		runID,
		isoUTC(state.CreatedAt),
		state.HazardRate,
		string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tracker state: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE bocpd_training_runs
		 SET finished_at_utc = ?, status = ?, point_count = ?, notes = 'ok'
		 WHERE id = ?`,
		isoUTC(finishedAt),
		models.RunStatusCompleted,
		pointCount,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete tracker run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tracker run: %w", err)
	}
	return nil
}

// LastScorerRunStatus returns the status of the most recent scorer run, or
// "" when no run exists.
func (c *Client) LastScorerRunStatus() (string, error) {
	return c.lastRunStatus(`SELECT status FROM lightgbm_training_runs ORDER BY id DESC LIMIT 1`)
}

// LastTrackerRunStatus returns the status of the most recent tracker run, or
// "" when no run exists.
func (c *Client) LastTrackerRunStatus() (string, error) {
	return c.lastRunStatus(`SELECT status FROM bocpd_training_runs ORDER BY id DESC LIMIT 1`)
}

func (c *Client) lastRunStatus(query string) (string, error) {
	var status string
	err := c.db.QueryRow(query).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last run status: %w", err)
	}
	return status, nil
}

// LatestTrackerState reads the newest tracker snapshot through the
// consumer-facing latest-state view.
func (c *Client) LatestTrackerState() (*models.TrackerState, error) {
	query := `
		SELECT id, run_id, created_at_utc, hazard_rate, state_json
		FROM vw_bocpd_latest_state
	`

	var state models.TrackerState
	var createdAt, stateJSON string

	err := c.db.QueryRow(query).Scan(&state.ID, &state.RunID, &createdAt, &state.HazardRate, &stateJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest tracker state: %w", err)
	}

	if state.CreatedAt, err = parseISO(createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stateJSON), &state.Payload); err != nil {
		return nil, fmt.Errorf("failed to deserialize tracker state: %w", err)
	}
	return &state, nil
}

// LatestScorerArtifact reads the newest scorer artifact through the
// consumer-facing latest-artifact view.
func (c *Client) LatestScorerArtifact() (*models.ModelArtifact, error) {
	query := `
		SELECT id, run_id, created_at_utc, model_type, feature_set_version, artifact_json
		FROM vw_lightgbm_latest_model_artifact
	`

	var artifact models.ModelArtifact
	var createdAt, payloadJSON string

	err := c.db.QueryRow(query).Scan(
		&artifact.ID,
		&artifact.RunID,
		&createdAt,
		&artifact.ModelType,
		&artifact.FeatureSetVersion,
		&payloadJSON,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest artifact: %w", err)
	}

	if artifact.CreatedAt, err = parseISO(createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payloadJSON), &artifact.Payload); err != nil {
		return nil, fmt.Errorf("failed to deserialize artifact payload: %w", err)
	}
	return &artifact, nil
}
