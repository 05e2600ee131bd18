// Package recoerrors provides sentinel and custom error types for the recommendation engine.
package recoerrors

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrUnauthorized is the sentinel for missing or invalid credentials.
// Never retried; surfaced as a 401 problem response.
var ErrUnauthorized = &UnauthorizedError{}

// UnauthorizedError is a sentinel error for authentication failures.
type UnauthorizedError struct {
	Message string
}

// NewUnauthorizedError creates an UnauthorizedError with a custom message.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// Error implements the error interface.
func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "unauthorized"
}

// Is implements the error interface for error comparison.
func (e *UnauthorizedError) Is(target error) bool {
	_, ok := target.(*UnauthorizedError)

	return ok
}

// ErrProviderUnavailable is the sentinel for embedding provider failures
// (non-success status, timeout, network error). The recommendation path recovers
// locally by degrading the topical signal to 0; this never fails a request.
var ErrProviderUnavailable = &ProviderUnavailableError{}

// ProviderUnavailableError is a sentinel error for embedding provider failures.
type ProviderUnavailableError struct {
	Provider string
	Message  string
}

// NewProviderUnavailableError creates a ProviderUnavailableError with a custom message.
func NewProviderUnavailableError(provider, message string) *ProviderUnavailableError {
	return &ProviderUnavailableError{Provider: provider, Message: message}
}

// Error implements the error interface.
func (e *ProviderUnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Provider != "" {
		return "embedding provider unavailable: " + e.Provider
	}

	return "embedding provider unavailable"
}

// Is implements the error interface for error comparison.
func (e *ProviderUnavailableError) Is(target error) bool {
	_, ok := target.(*ProviderUnavailableError)

	return ok
}

// ErrEmbeddingGeneration is the sentinel for failed embedding generation.
// No partial embedding record is persisted when this is returned.
var ErrEmbeddingGeneration = &EmbeddingGenerationError{}

// EmbeddingGenerationError is a sentinel error for embedding generation failures.
type EmbeddingGenerationError struct {
	Message string
}

// NewEmbeddingGenerationError creates an EmbeddingGenerationError with a custom message.
func NewEmbeddingGenerationError(message string) *EmbeddingGenerationError {
	return &EmbeddingGenerationError{Message: message}
}

// Error implements the error interface.
func (e *EmbeddingGenerationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "embedding generation failed"
}

// Is implements the error interface for error comparison.
func (e *EmbeddingGenerationError) Is(target error) bool {
	_, ok := target.(*EmbeddingGenerationError)

	return ok
}
