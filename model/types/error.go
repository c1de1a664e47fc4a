// Package types holds error classification shared between stages and the
// retry layer. A stage marks an error transient when the operation is worth
// retrying (dependency unavailable, rate limited); everything unmarked is
// treated as fatal.
package types

import (
	"errors"
	"fmt"
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so that the retry layer will re-attempt the operation.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or any wrapped error) is retryable.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// NewMissingInputError reports a stage contract violation: a required state
// field is absent. Always fatal.
func NewMissingInputError(stage, field string) error {
	return fmt.Errorf("stage %s: required input %q is missing", stage, field)
}
