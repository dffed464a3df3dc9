package interview

import (
	"github.com/intervox-ai/intervox/internal/llm"
	"github.com/intervox-ai/intervox/internal/session"
)

// StartSessionRequest begins (or restarts) an interview. SessionID is
// optional; when blank the server assigns one.
type StartSessionRequest struct {
	SessionID  string `json:"session_id" validate:"omitempty,uuid4"`
	Role       string `json:"role" validate:"required,min=2,max=100"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Mode       string `json:"mode" validate:"required,oneof=company ai hybrid"`
}

type StartSessionResponse struct {
	SessionID string         `json:"session_id"`
	Question  string         `json:"question"`
	Source    session.Source `json:"source"`
	Index     int            `json:"question_index"`
}

// NextQuestionRequest carries the answer to the previous question and asks
// for the next one.
type NextQuestionRequest struct {
	SessionID        string `json:"session_id" validate:"required"`
	PreviousQuestion string `json:"previous_question" validate:"required"`
	Answer           string `json:"answer"`
}

type NextQuestionResponse struct {
	Question   string          `json:"question"`
	Source     session.Source  `json:"source"`
	Index      int             `json:"question_index"`
	Transcript string          `json:"transcript,omitempty"`
	Evaluation *llm.Evaluation `json:"evaluation,omitempty"`
}
