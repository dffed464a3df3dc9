package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Admin.TokenSecret) < 32 {
		errs = append(errs, "ADMIN_TOKEN_SECRET must be at least 32 characters")
	}

	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	if c.OpenAI.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.Limits.MaxAIQuestions > c.Limits.MaxQuestionsPerSession {
		errs = append(errs, "MAX_AI_QUESTIONS_PER_INTERVIEW cannot exceed MAX_QUESTIONS_PER_INTERVIEW")
	}
	if c.Limits.Cooldown < 0 {
		errs = append(errs, "NEXT_QUESTION_COOLDOWN cannot be negative")
	}

	// OTP email flow needs SMTP; warn only, the admin-key fallback may be in use.
	if c.SMTP.Host == "" || c.SMTP.From == "" {
		slog.Warn("SMTP is not configured; admin OTP email delivery is disabled")
	}
	if c.Admin.AllowedEmail == "" {
		slog.Warn("ADMIN_ALLOWED_EMAIL is empty; admin OTP login is disabled for every email")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
