package usage

import "time"

// DayLayout is the calendar-date format stored in last_usage_day.
const DayLayout = "2006-01-02"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Pro multiplies the free-tier limits by fixed factors.
const (
	proTokenFactor    = 10
	proQuestionFactor = 5
)

// Account matches the usage_accounts table schema. The daily_* counters are
// meaningful only within last_usage_day; the ledger rolls them over lazily.
type Account struct {
	UserID             string    `json:"user_id"`
	Plan               Plan      `json:"plan"`
	TotalTokensUsed    int64     `json:"total_tokens_used"`
	DailyTokensUsed    int       `json:"daily_tokens_used"`
	DailyQuestionsUsed int       `json:"daily_questions_used"`
	QuestionsAttempted int       `json:"questions_attempted"`
	LastUsageDay       string    `json:"last_usage_day"`
	CreatedAt          time.Time `json:"created_at"`
}

// Limits are the resolved per-plan daily budgets.
type Limits struct {
	DailyTokens    int `json:"daily_tokens_limit"`
	DailyQuestions int `json:"daily_questions_limit"`
}

// Snapshot is the API view of an account with derived remaining-today fields.
type Snapshot struct {
	UserID              string `json:"user_id"`
	Plan                Plan   `json:"plan"`
	TotalTokensUsed     int64  `json:"total_tokens_used"`
	DailyTokensUsed     int    `json:"daily_tokens_used"`
	DailyQuestionsUsed  int    `json:"daily_questions_used"`
	QuestionsAttempted  int    `json:"questions_attempted"`
	DailyTokensLimit    int    `json:"daily_tokens_limit"`
	DailyQuestionsLimit int    `json:"daily_questions_limit"`
	TokensLeftToday     int    `json:"tokens_left_today"`
	QuestionsLeftToday  int    `json:"questions_left_today"`
}
