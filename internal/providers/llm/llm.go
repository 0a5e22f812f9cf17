package llm

import (
	"context"
	"errors"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Options are per-request generation settings. Zero values are omitted.
type Options struct {
	Model            string
	Temperature      float32
	TopP             float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
	Stop             []string
}

type Provider interface {
	// Complete returns the whole reply in one piece.
	Complete(ctx context.Context, msgs []Message, opts Options) (string, error)
	// StreamAnswer returns a stream of text chunks (incremental). chunks is
	// closed when the reply ends; errs then yields at most one error.
	StreamAnswer(ctx context.Context, msgs []Message, opts Options) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmptyResponse means the backend answered without usable content.
var ErrEmptyResponse = errors.New("llm: response has no content")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Collect drains a stream into one string.
func Collect(chunks <-chan string, errs <-chan error) (string, error) {
	var out []byte
	for c := range chunks {
		out = append(out, c...)
	}
	if err := <-errs; err != nil {
		return string(out), err
	}
	return string(out), nil
}
