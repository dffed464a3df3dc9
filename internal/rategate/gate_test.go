package rategate

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGate(t *testing.T, now *time.Time) *Gate {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, func() time.Time { return *now })
}

func TestGate_RecordCountsOwnEntry(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	gate := setupGate(t, &now)

	hits, err := gate.Record(context.Background(), "k", "/api/v1/interview/next")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "record-then-check: the new entry counts")
}

func TestGate_SlidingWindowScenario(t *testing.T) {
	// limit = 3/min at the caller: three calls in 10s pass, a 4th in the
	// same window exceeds, and after the window fully expires the count
	// starts over at 1.
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	gate := setupGate(t, &now)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		hits, err := gate.Record(ctx, "k", "/next")
		require.NoError(t, err)
		assert.Equal(t, i, hits)
		now = now.Add(5 * time.Second)
	}

	now = now.Add(30 * time.Second) // 45s after the first call
	hits, err := gate.Record(ctx, "k", "/next")
	require.NoError(t, err)
	assert.Equal(t, 4, hits, "4th call within 60s exceeds a 3/min limit")

	now = now.Add(61 * time.Second)
	hits, err = gate.Record(ctx, "k", "/next")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "window fully expired")
}

func TestGate_RejectedCallStillBurnsASlot(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	gate := setupGate(t, &now)
	ctx := context.Background()

	// With limit 1, the 2nd call is rejected by the caller but its entry
	// remains, so the 3rd call still sees 3 hits.
	for want := 1; want <= 3; want++ {
		hits, err := gate.Record(ctx, "k", "/start")
		require.NoError(t, err)
		assert.Equal(t, want, hits)
	}
}

func TestGate_KeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	gate := setupGate(t, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := gate.Record(ctx, "busy", "/next")
		require.NoError(t, err)
	}

	hits, err := gate.Record(ctx, "quiet", "/next")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestRequesterKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/interview/next", nil)
	r.RemoteAddr = "203.0.113.9:4242"
	assert.Equal(t, "203.0.113.9", RequesterKey(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", RequesterKey(r))

	r.Header.Set(UserIDHeader, "alice")
	assert.Equal(t, "alice", RequesterKey(r), "explicit identity wins over origin")
}
