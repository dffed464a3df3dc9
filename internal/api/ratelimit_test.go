package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intervox-ai/intervox/internal/rategate"
)

type fakeClock struct {
	now time.Time
}

func newLimitedHandler(t *testing.T, limit int) (http.Handler, *fakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	gate := rategate.New(rdb, func() time.Time { return clock.now })
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return RateLimit(gate, limit)(ok), clock, mr
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	handler, _, _ := newLimitedHandler(t, 3)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/interview/start", nil)
		req.Header.Set(rategate.UserIDHeader, "user-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	handler, _, _ := newLimitedHandler(t, 3)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/interview/start", nil)
		req.Header.Set(rategate.UserIDHeader, "user-1")
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), "rate_limited")
}

func TestRateLimitWindowExpires(t *testing.T) {
	handler, clock, mr := newLimitedHandler(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/interview/start", nil)
	req.Header.Set(rategate.UserIDHeader, "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	clock.now = clock.now.Add(61 * time.Second)
	mr.FastForward(61 * time.Second)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	handler, _, _ := newLimitedHandler(t, 1)

	for _, user := range []string{"user-1", "user-2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/interview/start", nil)
		req.Header.Set(rategate.UserIDHeader, user)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
