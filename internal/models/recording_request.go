package models

import "time"

// RecordingRequest is the persisted record of an API recording request.
type RecordingRequest struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	UserPrompt    string    `json:"user_prompt"`
	TargetURL     string    `json:"target_url"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	WalkthroughID *int64    `json:"walkthrough_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RecordingRequestUpdate carries the fields the pipeline writes back to a request row.
type RecordingRequestUpdate struct {
	WalkthroughID *int64
	Status        string
}
