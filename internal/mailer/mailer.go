package mailer

import (
	"context"
	"fmt"

	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Email is a plain-text message. Template rendering happens upstream.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends through a single SMTP relay, dialing per message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return fmt.Errorf("mailer: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", email.To, err)
	}
	return nil
}

// LogMailer only logs outgoing email. Used when no SMTP relay is configured.
type LogMailer struct {
	logger *logger.Logger
}

func NewLogMailer(l *logger.Logger) *LogMailer {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogMailer{logger: l}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	m.logger.WithContext(ctx).Info("email not sent, smtp disabled",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
	)
	return nil
}
