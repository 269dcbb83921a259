package sendgrid

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/vansima/storefront/internal/mailer"
)

// Mailer sends transactional email through SendGrid.
type Mailer struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
	logger   *slog.Logger
}

// NewMailer creates a SendGrid-backed mailer.
func NewMailer(apiKey, fromName, fromAddr string, logger *slog.Logger) *Mailer {
	return &Mailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
		logger:   logger,
	}
}

// Name returns the mailer name.
func (m *Mailer) Name() string {
	return "sendgrid"
}

// Send delivers a single email. SendGrid accepts with a 2xx; anything else
// is an error carrying the response body for the logs.
func (m *Mailer) Send(ctx context.Context, email mailer.Email) error {
	if email.To == "" {
		return fmt.Errorf("recipient address is empty")
	}

	html := email.HTML
	if html == "" {
		html = fmt.Sprintf("<pre>%s</pre>", email.Text)
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.fromAddr),
		email.Subject,
		sgmail.NewEmail("", email.To),
		email.Text,
		html,
	)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("to", email.To),
		slog.String("subject", email.Subject),
		slog.Int("status", resp.StatusCode),
	)

	return nil
}
