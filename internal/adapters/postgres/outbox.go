package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/app"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED
	DedupeKey     string
}

// EnqueueEvent writes an outbox row in the caller's transaction, so the event
// commits together with the state change it describes.
func (r *Repository) EnqueueEvent(ctx context.Context, ev app.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const stmt = `
INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
VALUES ($1, $2, $3, $4, $5, 'NEW', $6)`

	_, err = r.q(ctx).Exec(ctx, stmt, uuid.New(), ev.AggregateType, ev.AggregateID, ev.Type, payload, uuid.New().String())
	if err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}
	return nil
}

// GetUnpublishedOutbox claims a batch of NEW rows. Call it inside WithTx:
// the row locks hold only for the life of the surrounding transaction, and
// SKIP LOCKED keeps concurrent publishers off the same batch.
func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	const query = `
SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED`

	rows, err := r.q(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.q(ctx).Exec(ctx, `UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1`, id, publishedAt)
	return err
}

// OldestUnpublishedAge reports the publishing lag; zero when the outbox is
// drained.
func (r *Repository) OldestUnpublishedAge(ctx context.Context, now time.Time) (time.Duration, error) {
	var oldest *time.Time
	err := r.q(ctx).QueryRow(ctx, `SELECT MIN(created_at) FROM outbox WHERE status = 'NEW'`).Scan(&oldest)
	if err != nil {
		return 0, err
	}
	if oldest == nil {
		return 0, nil
	}
	return now.Sub(*oldest), nil
}
