// Package generator provides the content generation capability consumed by
// the pipeline: plain text and schema-validated structured JSON. The
// production client speaks to any OpenAI-compatible chat completion API
// and handles model fallback internally; callers see a single Text or
// Structured call that either returns a result or a terminal error.
package generator

import (
	"context"
	"errors"
)

// Sentinel errors for the generator package.
var (
	// ErrEmptyResponse is returned when the backend produced no usable content.
	ErrEmptyResponse = errors.New("empty generation response")

	// ErrInvalidJSON is returned when structured output failed validation
	// after the repair attempt.
	ErrInvalidJSON = errors.New("structured output failed validation")
)

// Request is one generation request.
type Request struct {
	System string
	Prompt string

	// MaxTokens caps the completion length (0 = backend default).
	MaxTokens int

	// Temperature overrides the client default when > 0.
	Temperature float64
}

// Generator turns prompts into content.
type Generator interface {
	// Text returns the raw text completion for req.
	Text(ctx context.Context, req Request) (string, error)

	// Structured generates JSON conforming to the given JSON schema,
	// validates it, and unmarshals it into out. The schema is also shown
	// to the model as part of the prompt.
	Structured(ctx context.Context, req Request, schema string, out any) error
}
