package session

import (
	"context"
	"time"

	"github.com/intervox-ai/intervox/internal/api"
)

// Registry manages interview session state: start/reset, ownership-checked
// lookups and validated advancement.
type Registry struct {
	repo Repository
	now  func() time.Time
}

func NewRegistry(repo Repository, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{repo: repo, now: now}
}

// CreateOrReset starts a session, fully reinitializing any prior run with the
// same id.
func (r *Registry) CreateOrReset(ctx context.Context, sessionID, userID, role, difficulty string, mode Mode) (*Session, error) {
	now := r.now().UTC()
	s := &Session{
		SessionID:      sessionID,
		UserID:         userID,
		Role:           role,
		Difficulty:     difficulty,
		Mode:           mode,
		Status:         StatusActive,
		LastQuestionAt: now,
		CreatedAt:      now,
	}
	if err := r.repo.Upsert(ctx, s); err != nil {
		return nil, api.NewStorageError(err)
	}
	return s, nil
}

// Get returns nil for a missing session and for a wrong-owner lookup alike.
func (r *Registry) Get(ctx context.Context, sessionID, userID string) (*Session, error) {
	s, err := r.repo.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, api.NewStorageError(err)
	}
	return s, nil
}

// ValidateActive returns the session or the reason it cannot accept questions.
func (r *Registry) ValidateActive(ctx context.Context, sessionID, userID string) (*Session, error) {
	s, err := r.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, api.ErrSessionNotFound
	}
	if s.Status != StatusActive {
		return nil, api.ErrSessionInactive
	}
	return s, nil
}

// Advance commits a successful next-question admission. If the session
// vanished since validation this is a silent no-op.
func (r *Registry) Advance(ctx context.Context, sessionID, userID string, nextIndex int, source Source) error {
	if err := r.repo.Advance(ctx, sessionID, userID, nextIndex, source, r.now().UTC()); err != nil {
		return api.NewStorageError(err)
	}
	return nil
}
