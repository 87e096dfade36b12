package ai

import "errors"

var (
	// ErrMissingCredential indicates no API key was configured.
	ErrMissingCredential = errors.New("ai config: api key is required")

	// ErrInvalidDimension indicates a non-positive embedding dimension.
	ErrInvalidDimension = errors.New("ai config: embedding dimension must be positive")

	// ErrInvalidMaxAttempts indicates a retry budget below one attempt.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrRetriesExhausted indicates every attempt of an operation failed.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrEmbeddingShape indicates the embedding model answered with the
	// wrong number of vectors or vectors of an unexpected length.
	ErrEmbeddingShape = errors.New("embedding does not match the configured shape")

	// ErrEmptyDescription indicates the vision model returned no text.
	ErrEmptyDescription = errors.New("image description is empty")
)
