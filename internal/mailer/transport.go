// Package mailer sends notification email over SMTP.
package mailer

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no SMTP credentials are set.
var ErrNotConfigured = errors.New("email transport not configured")

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Transport verifies connectivity and delivers messages.
type Transport interface {
	Verify(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
}
