package sqlite

import (
	"fmt"

	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
)

func (c *Client) InsertLabel(l *models.Label) (int64, error) {
	query := `
		INSERT INTO labels (
			label_start_utc, label_end_utc, local_date,
			timezone, source, created_at_utc
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := c.db.Exec(
		query,
		isoUTC(l.LabelStart),
		isoUTC(l.LabelEnd),
		l.LocalDate,
		l.Timezone,
		l.Source,
		isoUTC(l.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert label: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}
	return id, nil
}

// ListLabels returns all labels ordered by id.
func (c *Client) ListLabels() ([]models.Label, error) {
	query := `
		SELECT id, label_start_utc, label_end_utc, local_date, timezone, source, created_at_utc
		FROM labels
		ORDER BY id ASC
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var labels []models.Label
	for rows.Next() {
		var l models.Label
		var start, end, created string

		err := rows.Scan(&l.ID, &start, &end, &l.LocalDate, &l.Timezone, &l.Source, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if l.LabelStart, err = parseISO(start); err != nil {
			return nil, err
		}
		if l.LabelEnd, err = parseISO(end); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = parseISO(created); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// QueryFeatureLabelPairs returns the leakage-safe feature/label join: a
// feature pairs with a label only when its window ends at or before the
// label's end. Ordered by (window_end, feature id) ascending.
func (c *Client) QueryFeatureLabelPairs() ([]models.FeatureLabelPair, error) {
	query := `
		SELECT
			f.id AS feature_id,
			l.id AS label_id,
			f.feature_name,
			f.feature_value,
			f.window_end_utc,
			l.label_end_utc
		FROM features f
		JOIN labels l
		  ON f.window_end_utc <= l.label_end_utc
		ORDER BY f.window_end_utc ASC, f.id ASC
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature label pairs: %w", err)
	}
	defer rows.Close()

	var pairs []models.FeatureLabelPair
	for rows.Next() {
		var p models.FeatureLabelPair
		var windowEnd, labelEnd string

		err := rows.Scan(&p.FeatureID, &p.LabelID, &p.FeatureName, &p.FeatureValue, &windowEnd, &labelEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if p.WindowEnd, err = parseISO(windowEnd); err != nil {
			return nil, err
		}
		if p.LabelEnd, err = parseISO(labelEnd); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// QueryTrainingDataset reads the scorer training view, which carries the
// derived binary target alongside each valid feature/label pairing.
func (c *Client) QueryTrainingDataset() ([]models.TrainingExample, error) {
	query := `
		SELECT feature_name, feature_value, target, local_date
		FROM vw_lightgbm_training_dataset
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query training dataset: %w", err)
	}
	defer rows.Close()

	var examples []models.TrainingExample
	for rows.Next() {
		var ex models.TrainingExample
		err := rows.Scan(&ex.FeatureName, &ex.FeatureValue, &ex.Target, &ex.LocalDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		examples = append(examples, ex)
	}
	return examples, rows.Err()
}

// ListViewNames returns all view names in the store, sorted ascending.
func (c *Client) ListViewNames() ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'view' ORDER BY name ASC`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
