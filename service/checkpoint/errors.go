package checkpoint

import "errors"

// Sentinel errors allow callers to detect conditions via errors.Is instead
// of string comparison.

var (
	// ErrNotFound is returned when no checkpoint exists for the run id.
	ErrNotFound = errors.New("checkpoint: not found")

	// ErrInvalidID indicates an empty or otherwise invalid run id.
	ErrInvalidID = errors.New("checkpoint: invalid run id")

	// ErrCorrupt is returned when a stored record cannot be decoded back
	// into a valid state. It is never silently treated as "start fresh".
	ErrCorrupt = errors.New("checkpoint: corrupt record")
)
