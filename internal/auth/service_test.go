package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/config"
)

type captureMailer struct {
	to   string
	code string
}

func (m *captureMailer) SendOTP(to, code string) error {
	m.to = to
	m.code = code
	return nil
}

func newTestService(t *testing.T, keyHash string) (*Service, *captureMailer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.AdminConfig{
		TokenSecret:    "0123456789abcdef0123456789abcdef",
		TokenExpiry:    time.Hour,
		AllowedEmail:   "admin@example.com",
		KeyHash:        keyHash,
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 5,
	}
	mailer := &captureMailer{}
	svc := NewService(cfg,
		NewOTPStore(rdb, cfg.OTPTTL, cfg.OTPMaxAttempts),
		NewTokenManager(cfg.TokenSecret, cfg.TokenExpiry, nil),
		mailer)
	return svc, mailer, mr
}

func TestOTPFlow(t *testing.T) {
	svc, mailer, _ := newTestService(t, "")
	ctx := context.Background()

	require.NoError(t, svc.RequestCode(ctx, "admin@example.com"))
	require.Len(t, mailer.code, 6)
	assert.Equal(t, "admin@example.com", mailer.to)

	token, expiresIn, err := svc.VerifyCode(ctx, "admin@example.com", mailer.code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 3600, expiresIn)

	email, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", email)

	// Codes are single use.
	_, _, err = svc.VerifyCode(ctx, "admin@example.com", mailer.code)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestRequestCodeDisallowedEmail(t *testing.T) {
	svc, _, _ := newTestService(t, "")
	err := svc.RequestCode(context.Background(), "intruder@example.com")
	require.ErrorIs(t, err, api.ErrForbidden)
}

func TestRequestCodeEmptyAllowlistRejectsEveryone(t *testing.T) {
	svc, mailer, _ := newTestService(t, "")
	svc.cfg.AllowedEmail = ""

	err := svc.RequestCode(context.Background(), "admin@example.com")
	require.ErrorIs(t, err, api.ErrForbidden)
	assert.Empty(t, mailer.code)
}

func TestVerifyCodeWrongCodeBoundedAttempts(t *testing.T) {
	svc, mailer, _ := newTestService(t, "")
	ctx := context.Background()
	require.NoError(t, svc.RequestCode(ctx, "admin@example.com"))

	wrong := "000000"
	if mailer.code == wrong {
		wrong = "000001"
	}
	for i := 0; i < 5; i++ {
		_, _, err := svc.VerifyCode(ctx, "admin@example.com", wrong)
		require.ErrorIs(t, err, api.ErrUnauthorized)
	}

	// Attempts exhausted: even the real code no longer works.
	_, _, err := svc.VerifyCode(ctx, "admin@example.com", mailer.code)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestOTPExpires(t *testing.T) {
	svc, mailer, mr := newTestService(t, "")
	ctx := context.Background()
	require.NoError(t, svc.RequestCode(ctx, "admin@example.com"))

	mr.FastForward(5*time.Minute + time.Second)

	_, _, err := svc.VerifyCode(ctx, "admin@example.com", mailer.code)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestAdminKeyFallback(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("bootstrap-key"), bcrypt.MinCost)
	require.NoError(t, err)
	svc, _, _ := newTestService(t, string(hash))

	token, _, err := svc.VerifyAdminKey("bootstrap-key")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.VerifyAdminKey("wrong-key")
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestAdminKeyDisabledWithoutHash(t *testing.T) {
	svc, _, _ := newTestService(t, "")
	_, _, err := svc.VerifyAdminKey("anything")
	require.ErrorIs(t, err, api.ErrForbidden)
}

func TestVerifyTokenRejectsTampered(t *testing.T) {
	svc, mailer, _ := newTestService(t, "")
	ctx := context.Background()
	require.NoError(t, svc.RequestCode(ctx, "admin@example.com"))
	token, _, err := svc.VerifyCode(ctx, "admin@example.com", mailer.code)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token + "x")
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestTokenExpiry(t *testing.T) {
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tm := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour, func() time.Time { return current })

	token, _, err := tm.Issue("admin@example.com")
	require.NoError(t, err)

	_, err = tm.Verify(token)
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, err = tm.Verify(token)
	require.Error(t, err)
}
