package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events to the domain_events table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// InsertEvent appends one event row and returns the stored record.
func (s PGStore) InsertEvent(ctx context.Context, topic, aggregateID string, payload []byte) (Event, error) {
	const q = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at`
	var ev Event
	err := s.Pool.QueryRow(ctx, q, topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
