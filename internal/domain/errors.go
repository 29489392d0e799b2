package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed, missing or conflicting request field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyQuery indicates a query string with no content.
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmptyIndex indicates a query against an index that holds no chunks.
	ErrEmptyIndex = errors.New("index is empty")

	ErrNotFound = errors.New("not found")

	ErrAlreadyExists = errors.New("already exists")

	// ErrDimensionMismatch indicates a vector whose width differs from the index.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUpstream indicates an external collaborator failed or answered non-2xx.
	ErrUpstream = errors.New("upstream failure")

	// ErrUpstreamTimeout indicates an external collaborator did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrEmbeddingUnavailable indicates no embedding backend could be constructed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// UpstreamError carries the HTTP status of a failed collaborator call.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// AmbiguousTitleError is returned by an encyclopedia lookup that resolved
// to a disambiguation page.
type AmbiguousTitleError struct {
	Title   string
	Options []string
}

func (e *AmbiguousTitleError) Error() string {
	return fmt.Sprintf("title %q is ambiguous (%d options)", e.Title, len(e.Options))
}
