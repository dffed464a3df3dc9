package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry matches the audit_logs table schema.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	EventType string    `json:"event_type"`
	Operation string    `json:"operation"`
	Source    string    `json:"source,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit queries.
type ListParams struct {
	EventType string
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
