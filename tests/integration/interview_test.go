//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = DoRequest(t, env, "GET", "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestInterviewFlow(t *testing.T) {
	env := SetupTestEnv(t)
	headers := map[string]string{"X-User-ID": "candidate-flow"}

	seedQuestions(t, env)

	var sessionID, question string

	t.Run("start company interview", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/interview/start", map[string]string{
			"role":       "backend engineer",
			"difficulty": "medium",
			"mode":       "company",
		}, headers)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		sessionID = data["session_id"].(string)
		question = data["question"].(string)
		assert.NotEmpty(t, sessionID)
		assert.NotEmpty(t, question)
		assert.Equal(t, "database", data["source"])
		assert.Equal(t, float64(0), data["question_index"])
	})

	t.Run("next question advances the index", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/interview/next", map[string]string{
			"session_id":        sessionID,
			"previous_question": question,
			"answer":            "I would shard the table by tenant id.",
		}, headers)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, float64(1), data["question_index"])
		assert.NotEmpty(t, data["question"])
		if eval, ok := data["evaluation"].(map[string]any); ok {
			assert.Equal(t, float64(7), eval["score"])
		}
	})

	t.Run("blank answer is rejected", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/interview/next", map[string]string{
			"session_id":        sessionID,
			"previous_question": question,
			"answer":            "   ",
		}, headers)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("wrong owner sees session as missing", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/interview/next", map[string]string{
			"session_id":        sessionID,
			"previous_question": question,
			"answer":            "my answer",
		}, map[string]string{"X-User-ID": "someone-else"})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("usage snapshot reflects attempts", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/interview/usage", nil, headers)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, float64(2), data["daily_questions_used"])
		assert.Equal(t, float64(5), data["daily_questions_limit"])
	})
}

func TestDailyQuestionQuota(t *testing.T) {
	env := SetupTestEnv(t)
	headers := map[string]string{"X-User-ID": "candidate-quota"}

	seedQuestions(t, env)

	// Each start burns one attempt; the limit is 5 per day.
	for i := 0; i < 5; i++ {
		resp := DoRequest(t, env, "POST", "/api/v1/interview/start", map[string]string{
			"role":       "backend engineer",
			"difficulty": "medium",
			"mode":       "company",
		}, headers)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := DoRequest(t, env, "POST", "/api/v1/interview/start", map[string]string{
		"role":       "backend engineer",
		"difficulty": "medium",
		"mode":       "company",
	}, headers)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	result := ParseResponse(t, resp)
	assert.Equal(t, "quota_exceeded", result["reason"])
}

func TestAdminQuestionCRUD(t *testing.T) {
	env := SetupTestEnv(t)
	token := AdminToken(t, env)
	authed := map[string]string{"Authorization": "Bearer " + token}

	var questionID float64

	t.Run("create", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/admin/questions", map[string]string{
			"company":    "Acme",
			"role":       "platform engineer",
			"difficulty": "hard",
			"question":   "Design a multi-region failover for a stateful service.",
		}, authed)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		questionID = data["id"].(float64)
		assert.NotZero(t, questionID)
	})

	t.Run("list", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/admin/questions", nil, authed)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].([]any)
		assert.GreaterOrEqual(t, len(data), 1)
	})

	t.Run("unauthorized without token", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/admin/questions", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestProctorLog(t *testing.T) {
	env := SetupTestEnv(t)
	headers := map[string]string{"X-User-ID": "candidate-proctor"}

	resp := DoRequest(t, env, "POST", "/api/v1/interview/proctor-log", map[string]any{
		"session_id": "proctor-session-1",
		"events": []map[string]string{
			{"event_type": "tab_blur", "details": "window lost focus"},
			{"event_type": "paste", "details": "clipboard paste detected"},
		},
	}, headers)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	token := AdminToken(t, env)
	resp = DoRequest(t, env, "GET", "/api/v1/admin/proctor/proctor-session-1", nil,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := ParseResponse(t, resp)["data"].([]any)
	assert.Len(t, data, 2)
}

func seedQuestions(t *testing.T, env *TestEnv) {
	t.Helper()
	_, err := env.Pool.Exec(context.Background(),
		`INSERT INTO questions (company, role, difficulty, question)
		 SELECT 'Acme', 'backend engineer', 'medium', q
		 FROM unnest(ARRAY[
		   'How do you handle schema migrations without downtime?',
		   'Walk through debugging a slow endpoint.',
		   'When would you pick a message queue over an RPC call?',
		   'How do you bound memory in a streaming pipeline?',
		   'Describe your approach to idempotent retries.'
		 ]) AS q
		 WHERE NOT EXISTS (SELECT 1 FROM questions WHERE role = 'backend engineer')`)
	if err != nil {
		t.Fatalf("seeding questions: %v", err)
	}
}
