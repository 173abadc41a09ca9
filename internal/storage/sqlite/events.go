package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
)

// InsertRawEvent records one raw event with insert-if-absent semantics. The
// second return value reports whether a new row was written; a duplicate
// dedupe key yields (0, false, nil).
func (c *Client) InsertRawEvent(ev *models.RawEvent) (int64, bool, error) {
	attrs := ev.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return 0, false, fmt.Errorf("failed to serialize attributes: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO raw_events (
			event_type, entity_id, state, attributes_json,
			occurred_at_utc, dedupe_key, created_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := c.db.Exec(
		query,
		ev.EventType,
		nullIfEmpty(ev.EntityID),
		nullIfEmpty(ev.State),
		string(attrsJSON),
		isoUTC(ev.OccurredAt),
		ev.DedupeKey,
		isoUTC(ev.CreatedAt),
	)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert raw event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read insert id: %w", err)
	}
	return id, true, nil
}

// ListRawEventStates returns the states of events with occurred_at in
// [start, end), ordered by occurrence time. Events with no state come back
// as empty strings.
func (c *Client) ListRawEventStates(start, end time.Time) ([]string, error) {
	query := `
		SELECT state
		FROM raw_events
		WHERE occurred_at_utc >= ?
		  AND occurred_at_utc < ?
		ORDER BY occurred_at_utc ASC
	`

	rows, err := c.db.Query(query, isoUTC(start), isoUTC(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list raw event states: %w", err)
	}
	defer rows.Close()

	var states []string
	for rows.Next() {
		var state sql.NullString
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		states = append(states, state.String)
	}
	return states, rows.Err()
}

// InsertFeatureRows appends one batch of feature rows in a single
// transaction, all sharing the caller-assigned window and computed_at.
func (c *Client) InsertFeatureRows(featureRows []models.FeatureRow) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO features (
			window_start_utc, window_end_utc, feature_set_version,
			feature_name, feature_value, computed_at_utc
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare feature insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range featureRows {
		_, err := stmt.Exec(
			isoUTC(row.WindowStart),
			isoUTC(row.WindowEnd),
			row.FeatureSetVersion,
			row.FeatureName,
			row.FeatureValue,
			isoUTC(row.ComputedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert feature row %s: %w", row.FeatureName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feature rows: %w", err)
	}
	return nil
}

// QueryFeatureStream returns the chronological value series of one named
// feature across all windows, from the consumer-facing stream view.
func (c *Client) QueryFeatureStream(featureName string) ([]float64, error) {
	query := `
		SELECT feature_value
		FROM vw_bocpd_feature_stream
		WHERE feature_name = ?
		ORDER BY ts_utc ASC, id ASC
	`

	rows, err := c.db.Query(query, featureName)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature stream: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (c *Client) DeleteRawEventsBefore(cutoff time.Time) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM raw_events WHERE occurred_at_utc < ?`, isoUTC(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete raw events: %w", err)
	}
	return res.RowsAffected()
}

func (c *Client) DeleteFeaturesBefore(cutoff time.Time) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM features WHERE window_end_utc < ?`, isoUTC(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete features: %w", err)
	}
	return res.RowsAffected()
}

func (c *Client) CountRawEvents() (int64, error) {
	return c.countRows(`SELECT COUNT(*) FROM raw_events`)
}

func (c *Client) CountFeatures() (int64, error) {
	return c.countRows(`SELECT COUNT(*) FROM features`)
}

func (c *Client) CountLabels() (int64, error) {
	return c.countRows(`SELECT COUNT(*) FROM labels`)
}

func (c *Client) countRows(query string) (int64, error) {
	var count int64
	if err := c.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
