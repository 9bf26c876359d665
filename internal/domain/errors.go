package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrProjectNotFound signals a missing project.
	ErrProjectNotFound = errors.New("project not found")
	// ErrSessionNotFound signals a missing conversation session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidQuery signals an empty or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrMissingScope signals a search call without a tenant scope.
	ErrMissingScope = errors.New("missing tenant scope")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelAccess signals that a specific embedding model rejected the
	// request (unauthorized, forbidden, or unknown model). The provider
	// chain treats this as "try the next model", unlike transient failures.
	ErrModelAccess = errors.New("embedding model access denied")
)
