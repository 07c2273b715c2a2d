package models

import "time"

// EmailType for automation.
const (
	EmailTypeWalkthroughReady = "walkthrough_ready"
	EmailTypeConfigTest       = "config_test"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog records one notification attempt.
type EmailLog struct {
	ID             int64      `json:"id"`
	SessionID      string     `json:"session_id,omitempty"`
	RequestID      *int64     `json:"request_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
