package document

import "errors"

var (
	// ErrNotFound indicates the referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict is returned by stores when a conditional write did not
	// match the expected version or predecessor status.
	ErrVersionConflict = errors.New("concurrent modification detected")
	// ErrRegistry wraps failures writing the approval registry entry.
	ErrRegistry = errors.New("approval registry write failed")
	// ErrInvalidTransition indicates a transition request that is not part of
	// the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
