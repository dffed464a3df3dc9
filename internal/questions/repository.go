package questions

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the curated question bank. List is deterministic: ascending
// id for a given role+difficulty, so every caller sees the same ordering.
type Repository interface {
	List(ctx context.Context, role, difficulty string) ([]Question, error)
	ListAll(ctx context.Context) ([]Question, error)
	Create(ctx context.Context, q *Question) error
	Update(ctx context.Context, q *Question) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) List(ctx context.Context, role, difficulty string) ([]Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company, role, difficulty, question, created_at
		 FROM questions
		 WHERE LOWER(role) = LOWER($1) AND LOWER(difficulty) = LOWER($2)
		 ORDER BY id ASC`,
		strings.TrimSpace(role), strings.TrimSpace(difficulty))
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company, role, difficulty, question, created_at
		 FROM questions ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing all questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (r *postgresRepository) Create(ctx context.Context, q *Question) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (company, role, difficulty, question)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		strings.TrimSpace(q.Company), strings.TrimSpace(q.Role),
		strings.TrimSpace(q.Difficulty), strings.TrimSpace(q.Text),
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, q *Question) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET company = $2, role = $3, difficulty = $4, question = $5
		 WHERE id = $1`,
		q.ID, strings.TrimSpace(q.Company), strings.TrimSpace(q.Role),
		strings.TrimSpace(q.Difficulty), strings.TrimSpace(q.Text))
	if err != nil {
		return false, fmt.Errorf("updating question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanQuestions(rows pgx.Rows) ([]Question, error) {
	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Company, &q.Role, &q.Difficulty, &q.Text, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	return out, nil
}
