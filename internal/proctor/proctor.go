package proctor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one observed proctoring signal during an interview, e.g. the
// candidate leaving the tab or pasting text.
type Event struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	EventType  string    `json:"event_type"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists proctoring events.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertBatch stores a batch of events in one round trip.
func (r *Repository) InsertBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(
			`INSERT INTO proctor_events (session_id, user_id, event_type, details, occurred_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.SessionID, e.UserID, e.EventType, e.Details, e.OccurredAt)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting proctor events: %w", err)
		}
	}
	return nil
}

// ListBySession returns a session's proctoring trail in occurrence order.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, user_id, event_type, details, occurred_at, created_at
		 FROM proctor_events WHERE session_id = $1 ORDER BY occurred_at ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing proctor events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.EventType,
			&e.Details, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning proctor event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating proctor events: %w", err)
	}
	return out, nil
}
