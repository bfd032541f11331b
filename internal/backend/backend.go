// Package backend defines the uniform contract to the external reasoning
// service: one logical call carrying system instructions, the serialized
// conversation, and an output-schema constraint, returning raw text.
//
// Implementations are interchangeable and selected by configuration, never by
// caller-supplied input. None of them retries: one invocation attempt per
// turn, bounded by the caller's context.
package backend

import (
	"context"
	"encoding/json"
	"errors"
)

// Request is the single logical request shape shared by every backend.
type Request struct {
	// SystemInstructions carries the fixed domain/RAG rules plus the strict
	// output-contract preamble.
	SystemInstructions string

	// UserPrompt carries the serialized conversation history and the
	// classification instruction.
	UserPrompt string

	// OutputSchema is the JSON Schema the backend output must conform to.
	OutputSchema json.RawMessage
}

// Backend invokes one configured reasoning service with deterministic
// sampling and returns its raw textual output. Transport failures, timeouts,
// and non-2xx responses surface as errors; interpreting the text is the
// caller's job.
type Backend interface {
	Name() string
	Invoke(ctx context.Context, req *Request) (string, error)
}

// ErrEmptyResponse is returned when a backend answers successfully but with
// no usable text.
var ErrEmptyResponse = errors.New("backend returned an empty response")
