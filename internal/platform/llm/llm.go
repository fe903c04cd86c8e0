// Package llm provides the language model client used for guideline
// reasoning, question personalization, and patient-facing explanations.
// Callers must treat every completion as advisory and keep a deterministic
// fallback: the planner pipeline never fails because the model is down.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no model is configured or the model
// cannot be reached. Callers fall back to template output.
var ErrUnavailable = errors.New("llm: model unavailable")

// Client generates a free-text completion for a prompt.
type Client interface {
	// Complete sends the prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)
	// Available reports whether the client is configured to make calls.
	Available() bool
}

// Static is a canned-response client for tests and offline mode.
type Static struct {
	Response string
	Err      error
}

// NewStatic returns a client that always answers with response.
func NewStatic(response string) *Static {
	return &Static{Response: response}
}

// Complete returns the canned response or error.
func (s *Static) Complete(_ context.Context, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Response, nil
}

// Available reports true unless the static client is configured to fail.
func (s *Static) Available() bool {
	return s.Err == nil
}

// Disabled is a client that reports unavailable and never completes.
// It stands in when GEMINI_API_KEY is not set.
type Disabled struct{}

// Complete always returns ErrUnavailable.
func (Disabled) Complete(_ context.Context, _ string) (string, error) {
	return "", ErrUnavailable
}

// Available always reports false.
func (Disabled) Available() bool {
	return false
}
