package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Client struct {
	db  *sql.DB
	log *zap.Logger
}

func NewClient(dbPath string, busyTimeoutMS int, log *zap.Logger) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: the data layer is a single-writer component and the
	// engine's own locking protocol covers external readers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	log.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db, log: log}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// SetMetadata upserts one metadata key with the current UTC timestamp.
func (c *Client) SetMetadata(key, value string) error {
	query := `
		INSERT INTO metadata (key, value, updated_at_utc)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at_utc = excluded.updated_at_utc
	`

	_, err := c.db.Exec(query, key, value, isoUTC(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

func (c *Client) GetMetadata(key string) (string, bool, error) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	return value, true, nil
}

// isoUTC renders a second-precision UTC timestamp. All persisted instants use
// this format so lexical comparison in SQL equals temporal comparison.
func isoUTC(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
