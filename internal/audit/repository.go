package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists audit entries.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, session_id, event_type, operation, source, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.SessionID, e.EventType, e.Operation, e.Source, e.Reason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// ListByUser returns one page of a user's audit trail, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, params ListParams) ([]Entry, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM audit_logs WHERE user_id = $1`
	query := `SELECT id, user_id, session_id, event_type, operation, source, reason, created_at
	          FROM audit_logs WHERE user_id = $1`
	args := []any{userID}

	if params.EventType != "" {
		countQuery += ` AND event_type = $2`
		query += ` AND event_type = $2`
		args = append(args, params.EventType)
	}

	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.EventType,
			&e.Operation, &e.Source, &e.Reason, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit entries: %w", err)
	}
	return out, total, nil
}
