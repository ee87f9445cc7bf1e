// Package errs holds the sentinel errors shared by the acousticsync packages.
package errs

import "errors"

var (
	// ErrInvalidInput reports empty, malformed or size-mismatched signals.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDecode reports a recorded artifact that is not a valid sample container.
	ErrDecode = errors.New("decode error")

	// ErrCorrelationFailure reports a numeric failure while transforming or normalizing.
	ErrCorrelationFailure = errors.New("correlation failure")

	// ErrCancelled marks a long alignment abandoned because its context ended.
	ErrCancelled = errors.New("alignment cancelled")
)
