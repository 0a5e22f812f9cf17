// Package rag holds the vector-search backends behind the tax assistant.
package rag

import (
	"context"
	"errors"
)

// ErrMalformedResponse marks a backend reply that could not be decoded.
var ErrMalformedResponse = errors.New("rag: malformed response")

// Document is one ranked hit. Score is the backend's similarity; higher is
// closer.
type Document struct {
	Article string  `json:"article"`
	Type    string  `json:"type"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher returns up to limit documents ranked by relevance.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Document, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Backend names the implementation for health output.
	Backend() string
	Close() error
}
