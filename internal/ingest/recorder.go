package ingest

import (
	"crypto/sha256"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/metrics"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/models"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
)

// Recorder writes raw events idempotently. Re-delivering the same
// (event_type, entity_id, state, occurred_at) tuple is a no-op.
type Recorder struct {
	client *sqlite.Client
	log    *zap.Logger
}

func NewRecorder(client *sqlite.Client, log *zap.Logger) *Recorder {
	return &Recorder{client: client, log: log}
}

// RecordRawEvent stores one event. A zero occurredAt means now. The bool
// reports whether a new row was written; false with a nil error is the
// duplicate-delivery case.
func (r *Recorder) RecordRawEvent(eventType, entityID, state string, attributes map[string]any, occurredAt time.Time) (int64, bool, error) {
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	occurredAt = occurredAt.UTC().Truncate(time.Second)

	ev := &models.RawEvent{
		EventType:  eventType,
		EntityID:   entityID,
		State:      state,
		Attributes: attributes,
		OccurredAt: occurredAt,
		DedupeKey:  dedupeKey(eventType, entityID, state, occurredAt),
		CreatedAt:  time.Now().UTC(),
	}

	id, inserted, err := r.client.InsertRawEvent(ev)
	if err != nil {
		return 0, false, err
	}
	if !inserted {
		metrics.EventsIngested.WithLabelValues("duplicate").Inc()
		r.log.Debug("duplicate raw event ignored",
			zap.String("event_type", eventType),
			zap.String("entity_id", entityID),
		)
		return 0, false, nil
	}

	if err := r.client.SetMetadata("last_ingest_at", time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)); err != nil {
		return 0, false, err
	}

	metrics.EventsIngested.WithLabelValues("new").Inc()
	r.log.Debug("raw event recorded",
		zap.Int64("id", id),
		zap.String("event_type", eventType),
		zap.String("entity_id", entityID),
		zap.String("state", state),
	)
	return id, true, nil
}

// dedupeKey hashes the identifying fields plus the second-precision UTC
// timestamp. The format is part of the stored contract.
func dedupeKey(eventType, entityID, state string, occurredAt time.Time) string {
	payload := fmt.Sprintf("%s|%s|%s|%s", eventType, entityID, state, occurredAt.Format(time.RFC3339))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(payload)))
}
