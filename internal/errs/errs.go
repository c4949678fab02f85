// Package errs defines the error taxonomy shared by the coaching pipeline.
package errs

import "errors"

var (
	// ErrValidation marks malformed input to a planning or safety call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced plan, session or user that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks a failed call to the retrieval index or language model.
	ErrUpstream = errors.New("upstream failure")
)
