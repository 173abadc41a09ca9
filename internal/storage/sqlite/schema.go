package sqlite

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// CurrentSchemaVersion is the only version EnsureSchema can reach. Asking for
// any other version is refused rather than silently migrated.
const CurrentSchemaVersion = 1

const DefaultFeatureSetVersion = "v1"

const contractVersion = "1"

var ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS raw_events (
		id INTEGER PRIMARY KEY,
		event_type TEXT NOT NULL,
		entity_id TEXT,
		state TEXT,
		attributes_json TEXT,
		occurred_at_utc TEXT NOT NULL,
		dedupe_key TEXT NOT NULL UNIQUE,
		created_at_utc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_raw_events_occurred_at
		ON raw_events (occurred_at_utc);

	CREATE TABLE IF NOT EXISTS features (
		id INTEGER PRIMARY KEY,
		window_start_utc TEXT NOT NULL,
		window_end_utc TEXT NOT NULL,
		feature_set_version TEXT NOT NULL,
		feature_name TEXT NOT NULL,
		feature_value REAL NOT NULL,
		computed_at_utc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_features_window_end
		ON features (window_end_utc);
	CREATE INDEX IF NOT EXISTS idx_features_name_window
		ON features (feature_name, window_end_utc);

	CREATE TABLE IF NOT EXISTS labels (
		id INTEGER PRIMARY KEY,
		label_start_utc TEXT NOT NULL,
		label_end_utc TEXT NOT NULL,
		local_date TEXT NOT NULL,
		timezone TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at_utc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_labels_end ON labels (label_end_utc);

	CREATE TABLE IF NOT EXISTS lightgbm_training_runs (
		id INTEGER PRIMARY KEY,
		run_uid TEXT NOT NULL,
		started_at_utc TEXT NOT NULL,
		finished_at_utc TEXT,
		status TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		day_count INTEGER NOT NULL DEFAULT 0,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS lightgbm_model_artifacts (
		id INTEGER PRIMARY KEY,
		run_id INTEGER NOT NULL,
		created_at_utc TEXT NOT NULL,
		model_type TEXT NOT NULL,
		feature_set_version TEXT NOT NULL,
		artifact_json TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES lightgbm_training_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_lightgbm_model_artifacts_created
		ON lightgbm_model_artifacts (created_at_utc);

	CREATE TABLE IF NOT EXISTS bocpd_training_runs (
		id INTEGER PRIMARY KEY,
		run_uid TEXT NOT NULL,
		started_at_utc TEXT NOT NULL,
		finished_at_utc TEXT,
		status TEXT NOT NULL,
		point_count INTEGER NOT NULL DEFAULT 0,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS bocpd_model_state (
		id INTEGER PRIMARY KEY,
		run_id INTEGER NOT NULL,
		created_at_utc TEXT NOT NULL,
		hazard_rate REAL NOT NULL,
		state_json TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES bocpd_training_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_bocpd_state_created
		ON bocpd_model_state (created_at_utc);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at_utc TEXT NOT NULL
	);
`

// viewDDL defines the pull-only consumer contract. The join predicate in the
// training dataset view is the anti-leakage rule: a feature window must end
// at or before the label's end to be paired with it.
const viewDDL = `
	CREATE VIEW IF NOT EXISTS vw_lightgbm_training_dataset AS
	SELECT
		l.id AS label_id,
		f.id AS feature_id,
		f.feature_name,
		f.feature_value,
		f.window_end_utc,
		l.label_end_utc,
		l.local_date,
		CASE
			WHEN l.source = 'sleep_window' THEN 1
			ELSE 0
		END AS target
	FROM features f
	JOIN labels l
	  ON f.window_end_utc <= l.label_end_utc;

	CREATE VIEW IF NOT EXISTS vw_lightgbm_latest_model_artifact AS
	SELECT *
	FROM lightgbm_model_artifacts
	ORDER BY created_at_utc DESC, id DESC
	LIMIT 1;

	CREATE VIEW IF NOT EXISTS vw_bocpd_feature_stream AS
	SELECT
		id,
		window_end_utc AS ts_utc,
		feature_name,
		feature_value,
		feature_set_version
	FROM features
	ORDER BY window_end_utc ASC, id ASC;

	CREATE VIEW IF NOT EXISTS vw_bocpd_latest_state AS
	SELECT *
	FROM bocpd_model_state
	ORDER BY created_at_utc DESC, id DESC
	LIMIT 1;

	CREATE VIEW IF NOT EXISTS vw_latest_feature_snapshot AS
	SELECT f.*
	FROM features f
	JOIN (
	  SELECT feature_name, MAX(window_end_utc) AS max_end
	  FROM features
	  GROUP BY feature_name
	) latest
	  ON latest.feature_name = f.feature_name
	 AND latest.max_end = f.window_end_utc;
`

// EnsureSchema creates all tables, indexes and contract views if absent and
// records the schema, feature-set and contract versions in metadata. Safe to
// call on every process start.
func (c *Client) EnsureSchema(targetVersion int) error {
	if targetVersion != CurrentSchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, targetVersion)
	}

	if _, err := c.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := c.db.Exec(viewDDL); err != nil {
		return fmt.Errorf("failed to create views: %w", err)
	}

	if err := c.SetMetadata("schema_version", strconv.Itoa(targetVersion)); err != nil {
		return err
	}
	if err := c.SetMetadata("feature_set_version", DefaultFeatureSetVersion); err != nil {
		return err
	}
	if err := c.SetMetadata("contract_version", contractVersion); err != nil {
		return err
	}

	c.log.Info("schema ensured", zap.Int("schema_version", targetVersion))
	return nil
}
