package models

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a recording session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusRecording  SessionStatus = "recording"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// sessionTransitions lists the allowed next states per state. Terminal states have none.
var sessionTransitions = map[SessionStatus]map[SessionStatus]bool{
	SessionStatusPending: {
		SessionStatusRecording: true,
		SessionStatusFailed:    true,
	},
	SessionStatusRecording: {
		SessionStatusProcessing: true,
		SessionStatusFailed:     true,
	},
	SessionStatusProcessing: {
		SessionStatusCompleted: true,
		SessionStatusFailed:    true,
	},
	SessionStatusCompleted: {},
	SessionStatusFailed:    {},
}

// IsKnown reports whether s is one of the defined session states.
func (s SessionStatus) IsKnown() bool {
	_, ok := sessionTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition can leave s.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// CanTransitionSession reports whether from -> to is a legal move.
func CanTransitionSession(from, to SessionStatus) bool {
	next, ok := sessionTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// TransitionSession moves the session to status or returns an error for an illegal move.
func TransitionSession(s *RecordingSession, to SessionStatus) error {
	if !CanTransitionSession(s.Status, to) {
		return fmt.Errorf("invalid session status transition: %q -> %q (session_id=%s)", s.Status, to, s.ID)
	}
	s.Status = to
	return nil
}

// RecordingSession is one end-to-end recording request held in memory by the orchestrator.
// The password is kept only in memory and never serialized.
type RecordingSession struct {
	ID            string        `json:"id"`
	RequestID     int64         `json:"request_id"`
	TargetURL     string        `json:"target_url"`
	Username      string        `json:"username"`
	Password      string        `json:"-"`
	UserPrompt    string        `json:"user_prompt"`
	Email         string        `json:"email"`
	Status        SessionStatus `json:"status"`
	VideoURL      string        `json:"video_url,omitempty"`
	FilePath      string        `json:"file_path,omitempty"`
	ScriptContent string        `json:"script_content,omitempty"`
	WalkthroughID int64         `json:"walkthrough_id,omitempty"`
	Error         string        `json:"error,omitempty"`
	EmailSent     *bool         `json:"email_sent,omitempty"`
	EmailError    string        `json:"email_error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// StatusView is the poll-friendly projection returned to status callers.
type StatusView struct {
	SessionID  string        `json:"session_id"`
	Status     SessionStatus `json:"status"`
	VideoURL   string        `json:"video_url,omitempty"`
	Error      string        `json:"error,omitempty"`
	EmailSent  *bool         `json:"email_sent,omitempty"`
	EmailError string        `json:"email_error,omitempty"`
}

// View returns the status projection of the session.
func (s RecordingSession) View() StatusView {
	return StatusView{
		SessionID:  s.ID,
		Status:     s.Status,
		VideoURL:   s.VideoURL,
		Error:      s.Error,
		EmailSent:  s.EmailSent,
		EmailError: s.EmailError,
	}
}

// RecordingInput is what a caller supplies to start a session.
type RecordingInput struct {
	Username   string
	Password   string
	UserPrompt string
	TargetURL  string
	Email      string
	RequestID  int64
}
