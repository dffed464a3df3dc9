package interview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/config"
	"github.com/intervox-ai/intervox/internal/events"
	"github.com/intervox-ai/intervox/internal/llm"
	"github.com/intervox-ai/intervox/internal/metrics"
	"github.com/intervox-ai/intervox/internal/questions"
	"github.com/intervox-ai/intervox/internal/session"
	"github.com/intervox-ai/intervox/internal/usage"
)

// Ledger is the slice of the usage ledger the controller needs.
type Ledger interface {
	CheckQuestionQuota(ctx context.Context, userID string) error
	RecordQuestionAttempt(ctx context.Context, userID string) error
	Snapshot(ctx context.Context, userID string) (*usage.Snapshot, error)
}

// Registry is the slice of the session registry the controller needs.
type Registry interface {
	CreateOrReset(ctx context.Context, sessionID, userID, role, difficulty string, mode session.Mode) (*session.Session, error)
	ValidateActive(ctx context.Context, sessionID, userID string) (*session.Session, error)
	Advance(ctx context.Context, sessionID, userID string, nextIndex int, source session.Source) error
}

// QuestionBank provides the curated questions for a role and difficulty,
// deterministically ordered.
type QuestionBank interface {
	List(ctx context.Context, role, difficulty string) ([]questions.Question, error)
}

// Generator produces questions and evaluations; any call may fail with a
// generation error.
type Generator interface {
	Question(ctx context.Context, userID, role, difficulty string) (string, error)
	Followup(ctx context.Context, userID, previousQuestion, answer, role, difficulty string) (string, error)
	Evaluate(ctx context.Context, userID, question, answer string) (*llm.Evaluation, error)
}

// Controller runs the admission gates for interview operations: daily quotas,
// per-interview caps, the next-question cooldown, and the commit that makes a
// served question count.
type Controller struct {
	ledger    Ledger
	registry  Registry
	bank      QuestionBank
	generator Generator
	publisher *events.Publisher
	limits    config.LimitsConfig
	locks     *keyedMutex
	now       func() time.Time
}

func NewController(ledger Ledger, registry Registry, bank QuestionBank, generator Generator,
	publisher *events.Publisher, limits config.LimitsConfig, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		ledger:    ledger,
		registry:  registry,
		bank:      bank,
		generator: generator,
		publisher: publisher,
		limits:    limits,
		locks:     newKeyedMutex(),
		now:       now,
	}
}

// Start opens a new interview session (or fully reinitializes an existing
// one) and serves its first question.
func (c *Controller) Start(ctx context.Context, userID string, req StartSessionRequest) (*StartSessionResponse, error) {
	mode := session.Mode(req.Mode)
	if !mode.Valid() {
		return nil, api.NewValidationError(fmt.Sprintf("invalid interview mode %q", req.Mode))
	}

	if err := c.ledger.CheckQuestionQuota(ctx, userID); err != nil {
		c.reject(ctx, userID, req.SessionID, "start", err)
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Content is fetched before the session is (re)created: a failed
	// generation must leave any existing session untouched.
	question, source, err := c.firstQuestion(ctx, userID, &session.Session{
		Mode:       mode,
		Role:       req.Role,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		c.reject(ctx, userID, sessionID, "start", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := c.registry.CreateOrReset(ctx, sessionID, userID, req.Role, req.Difficulty, mode); err != nil {
		return nil, err
	}
	if err := c.ledger.RecordQuestionAttempt(ctx, userID); err != nil {
		return nil, err
	}

	metrics.QuestionsServedTotal.WithLabelValues(string(source)).Inc()
	c.publisher.PublishInterviewEvent(ctx, events.InterviewEvent{
		EventType: events.EventSessionStarted,
		UserID:    userID,
		SessionID: sessionID,
		Operation: "start",
		Source:    string(source),
		Timestamp: c.now().UTC(),
	})

	return &StartSessionResponse{
		SessionID: sessionID,
		Question:  question,
		Source:    source,
		Index:     0,
	}, nil
}

// Next runs the full admission gate sequence and, on success, advances the
// session and charges one question attempt. All gates for one session are
// mutually exclusive across concurrent calls.
func (c *Controller) Next(ctx context.Context, userID string, req NextQuestionRequest) (*NextQuestionResponse, error) {
	if strings.TrimSpace(req.Answer) == "" {
		return nil, api.NewValidationError("answer must not be blank")
	}

	resp, err := c.admitNext(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	// The verdict on the previous answer rides along with the next question.
	// Evaluation failures are logged, not surfaced: the admission already
	// committed. This runs outside the session lock so a slow evaluation
	// cannot stall concurrent calls on the same session.
	if eval, evalErr := c.generator.Evaluate(ctx, userID, req.PreviousQuestion, req.Answer); evalErr != nil {
		slog.Warn("evaluating answer", "error", evalErr, "session_id", req.SessionID)
	} else {
		resp.Evaluation = eval
	}

	return resp, nil
}

// admitNext holds the per-session lock from validation through the commit.
func (c *Controller) admitNext(ctx context.Context, userID string, req NextQuestionRequest) (*NextQuestionResponse, error) {
	unlock := c.locks.Lock(req.SessionID)
	defer unlock()

	s, err := c.registry.ValidateActive(ctx, req.SessionID, userID)
	if err != nil {
		c.reject(ctx, userID, req.SessionID, "next", err)
		return nil, err
	}

	if elapsed := c.now().UTC().Sub(s.LastQuestionAt); elapsed < c.limits.Cooldown {
		wait := int(math.Ceil((c.limits.Cooldown - elapsed).Seconds()))
		err := api.NewCooldownError(wait)
		c.reject(ctx, userID, req.SessionID, "next", err)
		return nil, err
	}

	if err := c.ledger.CheckQuestionQuota(ctx, userID); err != nil {
		c.reject(ctx, userID, req.SessionID, "next", err)
		return nil, err
	}

	question, source, err := c.nextQuestion(ctx, userID, s, req.PreviousQuestion, req.Answer)
	if err != nil {
		c.reject(ctx, userID, req.SessionID, "next", err)
		return nil, err
	}

	// Caps run after the content fetch: a rejected admission may already
	// have paid for a generation call, but the counters stay untouched.
	nextIndex := s.QuestionIndex + 1
	if nextIndex >= c.limits.MaxQuestionsPerSession {
		err := api.ErrQuestionCapReached
		c.reject(ctx, userID, req.SessionID, "next", err)
		return nil, err
	}
	if source == session.SourceAI && s.AIQuestionsUsed >= c.limits.MaxAIQuestions {
		err := api.ErrAICapReached
		c.reject(ctx, userID, req.SessionID, "next", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.registry.Advance(ctx, req.SessionID, userID, nextIndex, source); err != nil {
		return nil, err
	}
	if err := c.ledger.RecordQuestionAttempt(ctx, userID); err != nil {
		return nil, err
	}

	metrics.QuestionsServedTotal.WithLabelValues(string(source)).Inc()
	c.publisher.PublishInterviewEvent(ctx, events.InterviewEvent{
		EventType: events.EventQuestionServed,
		UserID:    userID,
		SessionID: req.SessionID,
		Operation: "next",
		Source:    string(source),
		Index:     nextIndex,
		Timestamp: c.now().UTC(),
	})

	return &NextQuestionResponse{
		Question: question,
		Source:   source,
		Index:    nextIndex,
	}, nil
}

// Usage returns the caller's quota snapshot.
func (c *Controller) Usage(ctx context.Context, userID string) (*usage.Snapshot, error) {
	return c.ledger.Snapshot(ctx, userID)
}

// firstQuestion picks the opening question by mode: company and hybrid
// interviews open from the curated bank when it has anything for the
// role/difficulty, falling back to the generator; ai mode always generates.
func (c *Controller) firstQuestion(ctx context.Context, userID string, s *session.Session) (string, session.Source, error) {
	if s.Mode != session.ModeAI {
		qs, err := c.bank.List(ctx, s.Role, s.Difficulty)
		if err != nil {
			return "", "", api.NewStorageError(err)
		}
		if len(qs) > 0 {
			return qs[0].Text, session.SourceDatabase, nil
		}
	}
	text, err := c.generator.Question(ctx, userID, s.Role, s.Difficulty)
	if err != nil {
		return "", "", err
	}
	return text, session.SourceAI, nil
}

// nextQuestion picks the follow-up content by mode. Hybrid interviews serve
// curated questions for the first few indices and generated follow-ups after
// that; company interviews stay on the bank while it lasts.
func (c *Controller) nextQuestion(ctx context.Context, userID string, s *session.Session, previousQuestion, answer string) (string, session.Source, error) {
	nextIndex := s.QuestionIndex + 1

	fromBank := false
	switch s.Mode {
	case session.ModeCompany:
		fromBank = true
	case session.ModeHybrid:
		fromBank = nextIndex < c.limits.HybridDBQuestions
	}

	if fromBank {
		qs, err := c.bank.List(ctx, s.Role, s.Difficulty)
		if err != nil {
			return "", "", api.NewStorageError(err)
		}
		if nextIndex < len(qs) {
			return qs[nextIndex].Text, session.SourceDatabase, nil
		}
	}

	text, err := c.generator.Followup(ctx, userID, previousQuestion, answer, s.Role, s.Difficulty)
	if err != nil {
		return "", "", err
	}
	return text, session.SourceAI, nil
}

// reject records a refused admission in metrics and the audit stream.
func (c *Controller) reject(ctx context.Context, userID, sessionID, operation string, cause error) {
	reason := api.Reason(cause)
	metrics.AdmissionsRejectedTotal.WithLabelValues(reason).Inc()
	c.publisher.PublishInterviewEvent(ctx, events.InterviewEvent{
		EventType: events.EventAdmissionRejected,
		UserID:    userID,
		SessionID: sessionID,
		Operation: operation,
		Reason:    reason,
		Timestamp: c.now().UTC(),
	})
}
