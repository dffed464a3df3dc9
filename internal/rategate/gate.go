package rategate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "rategate:"
	window    = 60 * time.Second
	// Keys outlive the window slightly so a count near the boundary still
	// sees every live entry before Redis expires the set.
	keyTTL = 90 * time.Second
)

// Gate is a per-requester sliding-window request counter backed by Redis
// sorted sets. Each requester key owns one set; pruning is per key and idle
// keys expire by TTL, so there is no global sweep over all requesters.
type Gate struct {
	rdb redis.Cmdable
	now func() time.Time
}

func New(rdb redis.Cmdable, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{rdb: rdb, now: now}
}

// Record appends an entry for the requester and returns how many of their
// requests fall inside the trailing 60 seconds, the new entry included. The
// gate records before it counts: a request that ends up rejected still burns
// a slot in the window.
func (g *Gate) Record(ctx context.Context, requesterKey, endpoint string) (int, error) {
	key := keyPrefix + requesterKey
	now := g.now()
	windowStart := float64(now.Add(-window).UnixMilli())

	pipe := g.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(windowStart, 'f', 0, 64))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%s:%d", endpoint, now.UnixNano()),
	})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, keyTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate gate pipeline: %w", err)
	}
	return int(countCmd.Val()), nil
}
