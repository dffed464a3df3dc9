package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists usage accounts. Every mutation is a single atomic
// statement against one account row; callers never read-modify-write.
type Repository interface {
	EnsureAccount(ctx context.Context, userID, today string) error
	Get(ctx context.Context, userID string) (*Account, error)
	// RolloverDay zeroes the daily counters iff the stored day differs from
	// today. Returns true when a reset was performed.
	RolloverDay(ctx context.Context, userID, today string) (bool, error)
	AddTokens(ctx context.Context, userID string, tokens int, endpoint string) error
	IncrementQuestion(ctx context.Context, userID string) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) EnsureAccount(ctx context.Context, userID, today string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_accounts (user_id, plan, last_usage_day)
		 VALUES ($1, 'free', $2)
		 ON CONFLICT (user_id) DO NOTHING`, userID, today)
	if err != nil {
		return fmt.Errorf("ensuring usage account: %w", err)
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, userID string) (*Account, error) {
	acc := &Account{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, plan, total_tokens_used, daily_tokens_used,
		        daily_questions_used, questions_attempted, last_usage_day, created_at
		 FROM usage_accounts WHERE user_id = $1`, userID,
	).Scan(&acc.UserID, &acc.Plan, &acc.TotalTokensUsed, &acc.DailyTokensUsed,
		&acc.DailyQuestionsUsed, &acc.QuestionsAttempted, &acc.LastUsageDay, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying usage account: %w", err)
	}
	return acc, nil
}

// The WHERE guard makes the reset happen exactly once per day transition no
// matter how many concurrent callers observe it.
func (r *postgresRepository) RolloverDay(ctx context.Context, userID, today string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE usage_accounts
		 SET daily_tokens_used = 0,
		     daily_questions_used = 0,
		     last_usage_day = $2
		 WHERE user_id = $1 AND last_usage_day <> $2`, userID, today)
	if err != nil {
		return false, fmt.Errorf("rolling over usage day: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) AddTokens(ctx context.Context, userID string, tokens int, endpoint string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning token usage tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE usage_accounts
		 SET total_tokens_used = total_tokens_used + $2,
		     daily_tokens_used = daily_tokens_used + $2
		 WHERE user_id = $1`, userID, tokens)
	if err != nil {
		return fmt.Errorf("adding token usage: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO usage_logs (user_id, tokens_used, endpoint) VALUES ($1, $2, $3)`,
		userID, tokens, endpoint)
	if err != nil {
		return fmt.Errorf("appending usage log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing token usage: %w", err)
	}
	return nil
}

func (r *postgresRepository) IncrementQuestion(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE usage_accounts
		 SET daily_questions_used = daily_questions_used + 1,
		     questions_attempted = questions_attempted + 1
		 WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("incrementing question usage: %w", err)
	}
	return nil
}
