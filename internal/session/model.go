package session

import "time"

type Mode string

const (
	ModeCompany Mode = "company"
	ModeAI      Mode = "ai"
	ModeHybrid  Mode = "hybrid"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeCompany, ModeAI, ModeHybrid:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Source says where a served question came from.
type Source string

const (
	SourceDatabase Source = "database"
	SourceAI       Source = "ai"
)

// Session matches the interview_sessions table schema. A session is owned by
// exactly one user; lookups always filter on both ids.
type Session struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Role            string    `json:"role"`
	Difficulty      string    `json:"difficulty"`
	Mode            Mode      `json:"mode"`
	QuestionIndex   int       `json:"question_index"`
	AIQuestionsUsed int       `json:"ai_questions_used"`
	Status          Status    `json:"status"`
	LastQuestionAt  time.Time `json:"last_question_at"`
	CreatedAt       time.Time `json:"created_at"`
}
