package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists interview sessions.
type Repository interface {
	// Upsert fully reinitializes the row on conflict — restart semantics,
	// nothing carries over from a prior run with the same id.
	Upsert(ctx context.Context, s *Session) error
	// Get returns nil when the session is absent or owned by another user;
	// the two cases are indistinguishable.
	Get(ctx context.Context, sessionID, userID string) (*Session, error)
	// Advance sets the question index, bumps the AI counter when the question
	// was generated, and refreshes last_question_at. A vanished row is a
	// silent no-op.
	Advance(ctx context.Context, sessionID, userID string, nextIndex int, source Source, at time.Time) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Upsert(ctx context.Context, s *Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO interview_sessions
		   (session_id, user_id, role, difficulty, mode, question_index,
		    ai_questions_used, status, last_question_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   role = EXCLUDED.role,
		   difficulty = EXCLUDED.difficulty,
		   mode = EXCLUDED.mode,
		   question_index = EXCLUDED.question_index,
		   ai_questions_used = EXCLUDED.ai_questions_used,
		   status = EXCLUDED.status,
		   last_question_at = EXCLUDED.last_question_at,
		   created_at = EXCLUDED.created_at`,
		s.SessionID, s.UserID, s.Role, s.Difficulty, s.Mode, s.QuestionIndex,
		s.AIQuestionsUsed, s.Status, s.LastQuestionAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting interview session: %w", err)
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, sessionID, userID string) (*Session, error) {
	s := &Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, user_id, role, difficulty, mode, question_index,
		        ai_questions_used, status, last_question_at, created_at
		 FROM interview_sessions
		 WHERE session_id = $1 AND user_id = $2`, sessionID, userID,
	).Scan(&s.SessionID, &s.UserID, &s.Role, &s.Difficulty, &s.Mode, &s.QuestionIndex,
		&s.AIQuestionsUsed, &s.Status, &s.LastQuestionAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying interview session: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) Advance(ctx context.Context, sessionID, userID string, nextIndex int, source Source, at time.Time) error {
	aiDelta := 0
	if source == SourceAI {
		aiDelta = 1
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET question_index = $3,
		     ai_questions_used = ai_questions_used + $4,
		     last_question_at = $5
		 WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID, nextIndex, aiDelta, at)
	if err != nil {
		return fmt.Errorf("advancing interview session: %w", err)
	}
	return nil
}
