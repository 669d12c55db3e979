// Package notify delivers the completion notification to a project owner.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/quillhq/quill/internal/project"
)

// Notifier tells an owner their artifact is ready.
type Notifier interface {
	Send(ctx context.Context, contact project.Contact, bookTitle, artifactPath string) error
}

// Log is a Notifier that only logs. Used when SMTP is unconfigured and in
// tests.
type Log struct {
	Logger *slog.Logger
}

func (l *Log) Send(ctx context.Context, contact project.Contact, bookTitle, artifactPath string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("completion notification",
		"email", contact.Email,
		"book_title", bookTitle,
		"artifact", artifactPath)
	return nil
}

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends completion mail over plain SMTP with AUTH.
type SMTP struct {
	cfg SMTPConfig
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTP{cfg: cfg}
}

func (s *SMTP) Send(ctx context.Context, contact project.Contact, bookTitle, artifactPath string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", contact.Email)
	fmt.Fprintf(&msg, "Subject: Your book %q is ready\r\n", bookTitle)
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "Hello %s,\r\n\r\n", contact.Name)
	fmt.Fprintf(&msg, "Your book %q has finished production. The final document is available at:\r\n\r\n  %s\r\n", bookTitle, artifactPath)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{contact.Email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
