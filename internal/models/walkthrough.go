package models

import (
	"encoding/json"
	"time"
)

// Walkthrough status values stored in the walkthroughs table.
const (
	WalkthroughStatusDraft     = "draft"
	WalkthroughStatusRecording = "recording"
	WalkthroughStatusCompleted = "completed"
	WalkthroughStatusFailed    = "failed"
)

// Walkthrough is a finished, persisted walkthrough recording.
type Walkthrough struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	TargetApp     string    `json:"target_app"`
	TargetURL     string    `json:"target_url"`
	UserType      string    `json:"user_type"`
	Environment   string    `json:"environment"`
	Status        string    `json:"status"`
	VideoURL      string    `json:"video_url,omitempty"`
	S3Key         string    `json:"s3_key,omitempty"`
	ScriptContent string    `json:"script_content,omitempty"`
	Duration      int       `json:"duration"`
	EmailSent     bool      `json:"email_sent"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StepAction is the kind of action a walkthrough step performs.
type StepAction string

const (
	StepActionClick    StepAction = "click"
	StepActionType     StepAction = "type"
	StepActionWait     StepAction = "wait"
	StepActionNavigate StepAction = "navigate"
	StepActionTooltip  StepAction = "tooltip"
)

// Valid reports whether a is one of the supported step actions.
func (a StepAction) Valid() bool {
	switch a {
	case StepActionClick, StepActionType, StepActionWait, StepActionNavigate, StepActionTooltip:
		return true
	}
	return false
}

// Step is one suggested walkthrough step.
type Step struct {
	StepNumber    int             `json:"step_number"`
	ActionType    StepAction      `json:"action_type"`
	TargetElement string          `json:"target_element"`
	Instructions  string          `json:"instructions"`
	Data          json.RawMessage `json:"data,omitempty"`
}
