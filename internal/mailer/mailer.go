package mailer

import "context"

// Email is an outbound message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer defines the interface for sending transactional email.
type Mailer interface {
	Name() string
	Send(ctx context.Context, email Email) error
}
