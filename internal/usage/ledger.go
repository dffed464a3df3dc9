package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/config"
)

// Ledger enforces per-user daily quotas on top of a Repository. All reads and
// mutations of daily counters go through sync, which applies the lazy
// day-rollover first.
type Ledger struct {
	repo   Repository
	limits config.LimitsConfig
	now    func() time.Time
}

func NewLedger(repo Repository, limits config.LimitsConfig, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: repo, limits: limits, now: now}
}

func (l *Ledger) today() string {
	return l.now().UTC().Format(DayLayout)
}

// LimitsFor resolves the daily budgets for a plan tier.
func (l *Ledger) LimitsFor(plan Plan) Limits {
	lim := Limits{
		DailyTokens:    l.limits.DailyTokensFree,
		DailyQuestions: l.limits.DailyQuestionsFree,
	}
	if plan == PlanPro {
		lim.DailyTokens *= proTokenFactor
		lim.DailyQuestions *= proQuestionFactor
	}
	return lim
}

// sync ensures the account exists and its daily counters belong to today,
// then returns the fresh row.
func (l *Ledger) sync(ctx context.Context, userID string) (*Account, error) {
	today := l.today()
	if err := l.repo.EnsureAccount(ctx, userID, today); err != nil {
		return nil, api.NewStorageError(err)
	}
	if _, err := l.repo.RolloverDay(ctx, userID, today); err != nil {
		return nil, api.NewStorageError(err)
	}
	acc, err := l.repo.Get(ctx, userID)
	if err != nil {
		return nil, api.NewStorageError(err)
	}
	if acc == nil {
		return nil, api.NewStorageError(fmt.Errorf("usage account %q vanished after ensure", userID))
	}
	return acc, nil
}

// CheckTokenQuota fails with QuotaExceeded once the daily token budget is spent.
func (l *Ledger) CheckTokenQuota(ctx context.Context, userID string) error {
	acc, err := l.sync(ctx, userID)
	if err != nil {
		return err
	}
	if lim := l.LimitsFor(acc.Plan); acc.DailyTokensUsed >= lim.DailyTokens {
		return api.NewQuotaExceededError(
			fmt.Sprintf("daily token limit exceeded: %d/%d tokens used", acc.DailyTokensUsed, lim.DailyTokens))
	}
	return nil
}

// CheckQuestionQuota fails with QuotaExceeded once the daily question budget is spent.
func (l *Ledger) CheckQuestionQuota(ctx context.Context, userID string) error {
	acc, err := l.sync(ctx, userID)
	if err != nil {
		return err
	}
	if lim := l.LimitsFor(acc.Plan); acc.DailyQuestionsUsed >= lim.DailyQuestions {
		return api.NewQuotaExceededError(
			fmt.Sprintf("daily question limit reached (%d), please try again tomorrow", lim.DailyQuestions))
	}
	return nil
}

// RecordTokenUsage adds tokens to the total and daily counters and appends a
// usage log entry. Negative amounts are clamped to zero.
func (l *Ledger) RecordTokenUsage(ctx context.Context, userID string, tokens int, endpoint string) error {
	if tokens < 0 {
		tokens = 0
	}
	if tokens == 0 {
		return nil
	}
	if _, err := l.sync(ctx, userID); err != nil {
		return err
	}
	if err := l.repo.AddTokens(ctx, userID, tokens, endpoint); err != nil {
		return api.NewStorageError(err)
	}
	return nil
}

// RecordQuestionAttempt increments the daily and lifetime question counters.
func (l *Ledger) RecordQuestionAttempt(ctx context.Context, userID string) error {
	if _, err := l.sync(ctx, userID); err != nil {
		return err
	}
	if err := l.repo.IncrementQuestion(ctx, userID); err != nil {
		return api.NewStorageError(err)
	}
	return nil
}

// Snapshot returns the account view with derived remaining-today fields.
func (l *Ledger) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	acc, err := l.sync(ctx, userID)
	if err != nil {
		return nil, err
	}
	lim := l.LimitsFor(acc.Plan)
	return &Snapshot{
		UserID:              acc.UserID,
		Plan:                acc.Plan,
		TotalTokensUsed:     acc.TotalTokensUsed,
		DailyTokensUsed:     acc.DailyTokensUsed,
		DailyQuestionsUsed:  acc.DailyQuestionsUsed,
		QuestionsAttempted:  acc.QuestionsAttempted,
		DailyTokensLimit:    lim.DailyTokens,
		DailyQuestionsLimit: lim.DailyQuestions,
		TokensLeftToday:     max(0, lim.DailyTokens-acc.DailyTokensUsed),
		QuestionsLeftToday:  max(0, lim.DailyQuestions-acc.DailyQuestionsUsed),
	}, nil
}
