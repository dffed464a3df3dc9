package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/intervox-ai/intervox/internal/events"
)

const consumerDurable = "audit-persister"

// Inserter is the write side of the audit trail.
type Inserter interface {
	Insert(ctx context.Context, e *Entry) error
}

// Consumer drains interview events from JetStream into the audit trail.
type Consumer struct {
	events *events.Client
	repo   Inserter
	logger *slog.Logger
}

func NewConsumer(ec *events.Client, repo Inserter, logger *slog.Logger) *Consumer {
	return &Consumer{events: ec, repo: repo, logger: logger}
}

// Run blocks until ctx is cancelled, persisting events as they arrive.
func (c *Consumer) Run(ctx context.Context) error {
	consumer, err := c.events.EnsureConsumer(ctx, consumerDurable, events.SubjectInterviewEvent)
	if err != nil {
		return err
	}

	c.logger.Info("audit consumer started", "durable", consumerDurable)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("audit consumer stopping")
			return nil
		default:
		}

		batch, err := consumer.Fetch(10, jetstream.FetchMaxWait(events.FetchTimeout))
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.logger.Error("fetching audit events", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for msg := range batch.Messages() {
			c.handle(ctx, msg)
		}
		if err := batch.Error(); err != nil {
			c.logger.Warn("audit event batch ended with error", "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	var ev events.InterviewEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		c.logger.Error("decoding interview event", "error", err)
		msg.Ack() // poison message, drop it
		return
	}

	entry := &Entry{
		ID:        uuid.New(),
		UserID:    ev.UserID,
		SessionID: ev.SessionID,
		EventType: ev.EventType,
		Operation: ev.Operation,
		Source:    ev.Source,
		Reason:    ev.Reason,
		CreatedAt: ev.Timestamp,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := c.repo.Insert(ctx, entry); err != nil {
		c.logger.Error("persisting audit entry", "error", err, "event_type", ev.EventType)
		msg.Nak()
		return
	}
	msg.Ack()
}
