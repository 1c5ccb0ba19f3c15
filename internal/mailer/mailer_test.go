package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMTPMailerRejectsEmptyRecipient(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})
	err := m.Send(context.Background(), Email{Subject: "hi"})
	assert.Error(t, err)
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Send(ctx, Email{To: "someone@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogMailerNeverFails(t *testing.T) {
	m := NewLogMailer(nil)
	assert.NoError(t, m.Send(context.Background(), Email{To: "a@example.com", Subject: "s", Body: "b"}))
}
