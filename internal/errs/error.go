package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - the backend reports no book for the given id.
	ErrNotFound = errors.New("not found")
	// ErrValidation - the backend rejected the payload.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable - transport-level failure talking to an upstream.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrUnresolved - no usable book id among the identity candidates.
	ErrUnresolved = errors.New("book identity unresolved")
	// ErrSessionNotFound - no generation session for the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBusy - an operation for the session is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrNoImage - the session has no generated image for the requested action.
	ErrNoImage = errors.New("no generated image")
)

// GenerationError is an image-generation failure. Upstream carries the
// provider's own message when the provider returned one.
type GenerationError struct {
	Upstream string
}

func (e *GenerationError) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("image generation failed: %s", e.Upstream)
	}
	return "image generation failed"
}

type ValidationErrorResponse struct {
	Message string `json:"message"`
	Errors  struct {
		AdditionalProperties string `json:"additionalProperties"`
	} `json:"errors"`
}
