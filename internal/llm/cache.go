package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "llm:question:"

// QuestionCache shares generated questions across requests for a short TTL so
// repeated (role, difficulty) generations don't each pay an API call. Entries
// carry their own expiry; Redis prunes them.
type QuestionCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewQuestionCache(rdb redis.Cmdable, ttl time.Duration) *QuestionCache {
	return &QuestionCache{rdb: rdb, ttl: ttl}
}

func cacheKey(role, difficulty string) string {
	return cacheKeyPrefix + strings.ToLower(strings.TrimSpace(role)) + ":" + strings.ToLower(strings.TrimSpace(difficulty))
}

// Get returns the cached question, or "" when absent or expired.
func (c *QuestionCache) Get(ctx context.Context, role, difficulty string) (string, error) {
	val, err := c.rdb.Get(ctx, cacheKey(role, difficulty)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("reading question cache: %w", err)
	}
	return val, nil
}

func (c *QuestionCache) Set(ctx context.Context, role, difficulty, question string) error {
	if err := c.rdb.Set(ctx, cacheKey(role, difficulty), question, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing question cache: %w", err)
	}
	return nil
}
