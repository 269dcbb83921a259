package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vansima/storefront/internal/mailer"
)

// Mailer is a mailer implementation that logs emails and always succeeds.
// It records sent emails so tests can assert on them.
type Mailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []mailer.Email

	// Err, when set, is returned from Send instead of recording.
	Err error
}

// NewMailer creates a new mock mailer.
func NewMailer(logger *slog.Logger) *Mailer {
	return &Mailer{logger: logger}
}

// Name returns the name of this mailer.
func (m *Mailer) Name() string {
	return "mock"
}

// Send logs the email and simulates a small sending delay.
func (m *Mailer) Send(ctx context.Context, email mailer.Email) error {
	time.Sleep(10 * time.Millisecond)

	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	m.sent = append(m.sent, email)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "mock mailer: email sent",
		slog.String("to", email.To),
		slog.String("subject", email.Subject),
	)

	return nil
}

// Sent returns a copy of the emails recorded so far.
func (m *Mailer) Sent() []mailer.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Email(nil), m.sent...)
}
