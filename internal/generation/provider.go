// Package generation produces walkthrough narration scripts and step suggestions from AI providers,
// falling back through the configured providers and finally to built-in defaults.
package generation

import (
	"context"
	"errors"
)

// Kind selects the response shape a provider is asked for.
type Kind string

const (
	KindScript Kind = "script"
	KindSteps  Kind = "steps"
)

// ErrEmptyResponse is returned when a provider answers with no usable content.
var ErrEmptyResponse = errors.New("empty provider response")

// Request is a single completion request. Providers must answer with a JSON document.
type Request struct {
	Kind        Kind
	System      string
	Prompt      string
	Temperature float32
}

// Provider is an AI text-generation backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
