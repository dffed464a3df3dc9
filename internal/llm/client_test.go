package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/config"
)

type recordingLedger struct {
	mu       sync.Mutex
	quotaErr error
	tokens   int
	calls    []string
}

func (l *recordingLedger) CheckTokenQuota(context.Context, string) error {
	return l.quotaErr
}

func (l *recordingLedger) RecordTokenUsage(_ context.Context, _ string, tokens int, endpoint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens += tokens
	l.calls = append(l.calls, endpoint)
	return nil
}

func fakeOpenAI(t *testing.T, content string, totalTokens int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{"total_tokens": totalTokens},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, baseURL string, ledger TokenLedger, cache *QuestionCache) *Client {
	t.Helper()
	return NewClient(config.OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, ledger, cache)
}

func TestClient_QuestionRecordsTokenUsage(t *testing.T) {
	srv := fakeOpenAI(t, "  Explain connection pooling.  ", 37)
	ledger := &recordingLedger{}
	c := testClient(t, srv.URL, ledger, nil)

	q, err := c.Question(context.Background(), "alice", "backend engineer", "medium")
	require.NoError(t, err)
	assert.Equal(t, "Explain connection pooling.", q)
	assert.Equal(t, 37, ledger.tokens)
	assert.Equal(t, []string{"/openai/question"}, ledger.calls)
}

func TestClient_QuestionTokenQuotaBlocks(t *testing.T) {
	srv := fakeOpenAI(t, "never reached", 10)
	ledger := &recordingLedger{quotaErr: api.ErrQuotaExceeded}
	c := testClient(t, srv.URL, ledger, nil)

	_, err := c.Question(context.Background(), "alice", "backend engineer", "medium")
	assert.ErrorIs(t, err, api.ErrQuotaExceeded)
	assert.Zero(t, ledger.tokens, "no API call, no usage")
}

func TestClient_QuestionUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Describe a B-tree."}},
			},
			"usage": map[string]any{"total_tokens": 12},
		})
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cache := NewQuestionCache(rdb, 180*time.Second)

	c := testClient(t, srv.URL, nil, cache)
	ctx := context.Background()

	first, err := c.Question(ctx, "", "dba", "hard")
	require.NoError(t, err)
	second, err := c.Question(ctx, "", "dba", "hard")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second question served from cache")

	// After the TTL runs out the API is consulted again.
	mr.FastForward(181 * time.Second)
	_, err = c.Question(ctx, "", "dba", "hard")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClient_APIFailureIsGenerationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded", "type": "server_error"},
		})
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL, nil, nil)
	_, err := c.Followup(context.Background(), "", "Q?", "A.", "backend engineer", "easy")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrGeneration)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestParseEvaluation_Normalizes(t *testing.T) {
	raw := `{"score": 42, "confidence": -5, "verdict": "PASS", "feedback": "solid"}`
	eval, err := parseEvaluation(raw, "a real answer")
	require.NoError(t, err)
	assert.Equal(t, 10, eval.Score)
	assert.Equal(t, 0, eval.Confidence)
	assert.Equal(t, "pass", eval.Verdict)
	assert.NotNil(t, eval.Strengths)
	assert.NotNil(t, eval.Weaknesses)
}

func TestParseEvaluation_FencedJSON(t *testing.T) {
	raw := "```json\n{\"score\": 7, \"verdict\": \"pass\", \"feedback\": \"ok\"}\n```"
	eval, err := parseEvaluation(raw, "answer")
	require.NoError(t, err)
	assert.Equal(t, 7, eval.Score)
	assert.Equal(t, "pass", eval.Verdict)
}

func TestParseEvaluation_BlankAnswerNeverPasses(t *testing.T) {
	raw := `{"score": 9, "verdict": "pass", "feedback": ""}`
	eval, err := parseEvaluation(raw, "   ")
	require.NoError(t, err)
	assert.Equal(t, 0, eval.Score)
	assert.Equal(t, "fail", eval.Verdict)
	assert.NotEmpty(t, eval.Weaknesses)
	assert.NotEmpty(t, eval.Feedback)
}

func TestParseEvaluation_GarbageFails(t *testing.T) {
	_, err := parseEvaluation("the model rambled with no JSON", "answer")
	assert.Error(t, err)
}
