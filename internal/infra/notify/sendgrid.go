package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"stayfinder/internal/app/handlers/notifications"
)

var ErrRecipientMissing = errors.New("notify: recipient address required")

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers plain-text notification emails.
type SendGridMailer struct {
	client   sender
	fromName string
	fromAddr string
}

func NewSendGridMailer(apiKey, fromAddr, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, email notifications.Email) error {
	message, err := m.build(email)
	if err != nil {
		return err
	}
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *SendGridMailer) build(email notifications.Email) (*mail.SGMailV3, error) {
	to := strings.TrimSpace(email.ToAddress)
	if to == "" {
		return nil, ErrRecipientMissing
	}
	from := mail.NewEmail(m.fromName, m.fromAddr)
	recipient := mail.NewEmail(email.ToName, to)
	return mail.NewSingleEmail(from, email.Subject, recipient, email.Text, ""), nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, email notifications.Email) error {
	if m.Logger != nil {
		m.Logger.Info("email suppressed", "to", email.ToAddress, "subject", email.Subject)
	}
	return nil
}

var (
	_ notifications.Mailer = (*SendGridMailer)(nil)
	_ notifications.Mailer = LogMailer{}
)
