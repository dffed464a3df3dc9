package events

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every interview lifecycle event.
const StreamEvents = "INTERVOX_EVENTS"

const SubjectInterviewEvent = "intervox.events.interview"

// Interview event types.
const (
	EventSessionStarted    = "session_started"
	EventQuestionServed    = "question_served"
	EventAdmissionRejected = "admission_rejected"
)

// InterviewEvent records one admission-control decision for the audit trail.
type InterviewEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	Operation string    `json:"operation"` // start | next
	Source    string    `json:"source,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Index     int       `json:"question_index,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
