package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intervox-ai/intervox/internal/api"
)

const (
	otpKeyPrefix      = "auth:otp:"
	attemptsKeyPrefix = "auth:otp:attempts:"
)

// OTPStore keeps one-time login codes in Redis. Each code carries its own
// expiry; verification is bounded by an attempt counter sharing the code's
// lifetime.
type OTPStore struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	maxAttempts int
}

func NewOTPStore(rdb redis.Cmdable, ttl time.Duration, maxAttempts int) *OTPStore {
	return &OTPStore{rdb: rdb, ttl: ttl, maxAttempts: maxAttempts}
}

// Issue generates a fresh 6-digit code for email, replacing any outstanding
// one and resetting the attempt counter.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, otpKeyPrefix+email, code, s.ttl)
	pipe.Del(ctx, attemptsKeyPrefix+email)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("storing otp: %w", err)
	}
	return code, nil
}

// Verify checks code against the outstanding one for email. The code is
// consumed on success; too many failures consume it as well.
func (s *OTPStore) Verify(ctx context.Context, email, code string) error {
	stored, err := s.rdb.Get(ctx, otpKeyPrefix+email).Result()
	if err == redis.Nil {
		return api.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("reading otp: %w", err)
	}

	attempts, err := s.rdb.Incr(ctx, attemptsKeyPrefix+email).Result()
	if err != nil {
		return fmt.Errorf("counting otp attempts: %w", err)
	}
	if attempts == 1 {
		s.rdb.Expire(ctx, attemptsKeyPrefix+email, s.ttl)
	}
	if attempts > int64(s.maxAttempts) {
		s.rdb.Del(ctx, otpKeyPrefix+email, attemptsKeyPrefix+email)
		return api.ErrUnauthorized
	}

	if stored != code {
		return api.ErrUnauthorized
	}

	s.rdb.Del(ctx, otpKeyPrefix+email, attemptsKeyPrefix+email)
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
