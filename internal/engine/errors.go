package engine

import "errors"

var (
	// ErrInvalidTransition means the requested status is not reachable from
	// the node's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingReason means a skip or failure was requested without a reason.
	ErrMissingReason = errors.New("reason required")

	// ErrSequencingViolation means a parent item was completed while subitems
	// remain unactioned.
	ErrSequencingViolation = errors.New("subitems not all actioned")

	// ErrFailedSubitems means completing an item over a failed subitem was
	// requested without explicit acknowledgment.
	ErrFailedSubitems = errors.New("failed subitems require acknowledgment")

	// ErrInvalidShift means the shift name is not in the configured catalog.
	ErrInvalidShift = errors.New("invalid shift")
)
