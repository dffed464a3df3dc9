package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intervox-ai/intervox/internal/api"
)

type memRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newMemRepository() *memRepository {
	return &memRepository{sessions: map[string]*Session{}}
}

func (m *memRepository) Upsert(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.SessionID] = &cp
	return nil
}

func (m *memRepository) Get(_ context.Context, sessionID, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memRepository) Advance(_ context.Context, sessionID, userID string, nextIndex int, source Source, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil
	}
	s.QuestionIndex = nextIndex
	if source == SourceAI {
		s.AIQuestionsUsed++
	}
	s.LastQuestionAt = at
	return nil
}

func newTestRegistry(now time.Time) (*Registry, *memRepository) {
	repo := newMemRepository()
	return NewRegistry(repo, func() time.Time { return now }), repo
}

func TestRegistry_CreateOrResetRestartSemantics(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	reg, _ := newTestRegistry(now)
	ctx := context.Background()

	s, err := reg.CreateOrReset(ctx, "sess-1", "alice", "backend engineer", "medium", ModeHybrid)
	require.NoError(t, err)
	require.NoError(t, reg.Advance(ctx, "sess-1", "alice", 3, SourceAI))
	require.NoError(t, reg.Advance(ctx, "sess-1", "alice", 4, SourceAI))

	s, err = reg.CreateOrReset(ctx, "sess-1", "alice", "backend engineer", "hard", ModeAI)
	require.NoError(t, err)
	assert.Equal(t, 0, s.QuestionIndex, "index resets on restart")
	assert.Equal(t, 0, s.AIQuestionsUsed, "AI counter resets on restart")
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, "hard", s.Difficulty)

	got, err := reg.Get(ctx, "sess-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, got.AIQuestionsUsed)
}

func TestRegistry_WrongOwnerIndistinguishableFromMissing(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	reg, _ := newTestRegistry(now)
	ctx := context.Background()

	_, err := reg.CreateOrReset(ctx, "sess-1", "alice", "backend engineer", "easy", ModeCompany)
	require.NoError(t, err)

	missing, err := reg.Get(ctx, "no-such-session", "alice")
	require.NoError(t, err)
	wrongOwner, err := reg.Get(ctx, "sess-1", "mallory")
	require.NoError(t, err)
	assert.Equal(t, missing, wrongOwner)

	_, err = reg.ValidateActive(ctx, "sess-1", "mallory")
	assert.ErrorIs(t, err, api.ErrSessionNotFound)
}

func TestRegistry_ValidateActive(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	reg, repo := newTestRegistry(now)
	ctx := context.Background()

	_, err := reg.ValidateActive(ctx, "sess-1", "alice")
	assert.ErrorIs(t, err, api.ErrSessionNotFound)

	_, err = reg.CreateOrReset(ctx, "sess-1", "alice", "backend engineer", "easy", ModeCompany)
	require.NoError(t, err)

	s, err := reg.ValidateActive(ctx, "sess-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.SessionID)

	repo.sessions["sess-1"].Status = StatusInactive
	_, err = reg.ValidateActive(ctx, "sess-1", "alice")
	assert.ErrorIs(t, err, api.ErrSessionInactive)
}

func TestRegistry_AdvanceTracksSourceAndTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	reg, repo := newTestRegistry(now)
	ctx := context.Background()

	_, err := reg.CreateOrReset(ctx, "sess-1", "alice", "backend engineer", "easy", ModeHybrid)
	require.NoError(t, err)

	require.NoError(t, reg.Advance(ctx, "sess-1", "alice", 1, SourceDatabase))
	assert.Equal(t, 0, repo.sessions["sess-1"].AIQuestionsUsed)

	require.NoError(t, reg.Advance(ctx, "sess-1", "alice", 2, SourceAI))
	assert.Equal(t, 1, repo.sessions["sess-1"].AIQuestionsUsed)
	assert.Equal(t, 2, repo.sessions["sess-1"].QuestionIndex)
	assert.Equal(t, now, repo.sessions["sess-1"].LastQuestionAt)
}

func TestRegistry_AdvanceVanishedSessionIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	reg, _ := newTestRegistry(now)

	// No session exists; Advance must not fail.
	assert.NoError(t, reg.Advance(context.Background(), "ghost", "alice", 1, SourceAI))
}
