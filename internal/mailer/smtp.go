package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 587
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP delivers mail through an authenticated SMTP relay.
type SMTP struct {
	dialer *gomail.Dialer
	cfg    Config
}

// NewSMTP returns nil when username or password is missing so callers can treat the transport as absent.
func NewSMTP(cfg Config) *SMTP {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTP{dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg: cfg}
}

// Settings returns the effective configuration without the password.
func (s *SMTP) Settings() Config {
	c := s.cfg
	c.Password = ""
	return c
}

// Verify opens and authenticates an SMTP connection.
func (s *SMTP) Verify(ctx context.Context) error {
	return withContext(ctx, func() error {
		conn, err := s.dialer.Dial()
		if err != nil {
			return fmt.Errorf("email service unavailable: %w", err)
		}
		return conn.Close()
	})
}

// Send delivers msg.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return withContext(ctx, func() error {
		if err := s.dialer.DialAndSend(m); err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	})
}

// withContext runs fn and returns early when ctx ends. gomail has no context or I/O deadline, so
// an abandoned fn finishes in the background once the server answers or drops the connection.
func withContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
