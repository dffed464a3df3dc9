package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes interview events to JetStream. A nil Publisher is a
// no-op, so callers don't branch on whether NATS is configured.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishInterviewEvent sends the event; failures are logged, never surfaced —
// the audit trail must not block admissions.
func (p *Publisher) PublishInterviewEvent(ctx context.Context, event InterviewEvent) {
	if p == nil {
		return
	}
	if err := p.publish(ctx, SubjectInterviewEvent, event); err != nil {
		slog.Warn("publishing interview event", "error", err, "event_type", event.EventType)
	}
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
