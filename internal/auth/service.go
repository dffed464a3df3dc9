package auth

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/config"
)

// Service runs the admin login flow: email one-time codes exchanged for
// access tokens, plus an optional bootstrap-key fallback.
type Service struct {
	cfg    config.AdminConfig
	otp    *OTPStore
	tokens *TokenManager
	mailer Mailer
}

func NewService(cfg config.AdminConfig, otp *OTPStore, tokens *TokenManager, mailer Mailer) *Service {
	return &Service{cfg: cfg, otp: otp, tokens: tokens, mailer: mailer}
}

func (s *Service) allowed(email string) bool {
	return s.cfg.AllowedEmail != "" &&
		strings.EqualFold(strings.TrimSpace(email), s.cfg.AllowedEmail)
}

// RequestCode issues and emails a one-time code. Unknown emails fail with the
// same error as known ones to avoid acting as an address oracle.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	if !s.allowed(email) {
		slog.Warn("otp requested for disallowed email")
		return api.ErrForbidden
	}
	code, err := s.otp.Issue(ctx, s.cfg.AllowedEmail)
	if err != nil {
		return api.NewStorageError(err)
	}
	if err := s.mailer.SendOTP(s.cfg.AllowedEmail, code); err != nil {
		return err
	}
	return nil
}

// VerifyCode exchanges a valid one-time code for an access token.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (string, int, error) {
	if !s.allowed(email) {
		return "", 0, api.ErrForbidden
	}
	if err := s.otp.Verify(ctx, s.cfg.AllowedEmail, code); err != nil {
		return "", 0, err
	}
	token, expiresIn, err := s.tokens.Issue(s.cfg.AllowedEmail)
	if err != nil {
		return "", 0, api.ErrInternalServer
	}
	return token, expiresIn, nil
}

// VerifyAdminKey exchanges the bcrypt-hashed bootstrap key for an access
// token. Disabled when no hash is configured.
func (s *Service) VerifyAdminKey(key string) (string, int, error) {
	if s.cfg.KeyHash == "" {
		return "", 0, api.ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.KeyHash), []byte(key)); err != nil {
		return "", 0, api.ErrUnauthorized
	}
	token, expiresIn, err := s.tokens.Issue("admin-key")
	if err != nil {
		return "", 0, api.ErrInternalServer
	}
	return token, expiresIn, nil
}

// VerifyToken validates a bearer token and returns the admin identity.
func (s *Service) VerifyToken(token string) (string, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		return "", api.ErrUnauthorized
	}
	return email, nil
}
