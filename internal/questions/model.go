package questions

import "time"

// Question is one curated company interview question.
type Question struct {
	ID         int64     `json:"id"`
	Company    string    `json:"company"`
	Role       string    `json:"role"`
	Difficulty string    `json:"difficulty"`
	Text       string    `json:"question"`
	CreatedAt  time.Time `json:"created_at"`
}

type UpsertQuestionRequest struct {
	Company    string `json:"company" validate:"required,min=1"`
	Role       string `json:"role" validate:"required,min=2"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Text       string `json:"question" validate:"required,min=5"`
}
