package auth

import (
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/intervox-ai/intervox/internal/config"
)

// Mailer delivers one-time login codes.
type Mailer interface {
	SendOTP(to, code string) error
}

// SMTPMailer sends codes over authenticated SMTP with STARTTLS.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendOTP(to, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your admin login code\r\n\r\n"+
		"Your one-time login code is: %s\r\n\r\nIt expires shortly. If you did not request it, ignore this email.\r\n",
		m.cfg.From, to, code)

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(m.cfg.Addr(), auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending otp email: %w", err)
	}
	return nil
}

// LogMailer is the development fallback when SMTP is not configured: the code
// is written to the log instead of delivered.
type LogMailer struct{}

func (LogMailer) SendOTP(to, code string) error {
	slog.Warn("SMTP not configured, logging otp instead", "to", to, "code", code)
	return nil
}
