package engine

import (
	"fmt"
	"strings"

	"shiftcheck/internal/domain"
)

// IsTerminal reports whether a node status permits no further transition.
func IsTerminal(status string) bool {
	switch status {
	case domain.StatusCompleted, domain.StatusSkipped, domain.StatusFailed:
		return true
	}
	return false
}

// ValidateTransition checks a requested node status change against the
// transition table:
//
//	PENDING     -> IN_PROGRESS | SKIPPED | FAILED
//	IN_PROGRESS -> COMPLETED | SKIPPED | FAILED
//
// SKIPPED and FAILED require a non-blank reason. Re-requesting the current
// terminal status with the same reason reports noop=true so callers can
// treat client retries as a success without re-applying side effects; a
// different terminal target, or the same target with a different reason,
// is rejected.
func ValidateTransition(current, requested, reason, priorReason string) (noop bool, err error) {
	switch requested {
	case domain.StatusInProgress, domain.StatusCompleted, domain.StatusSkipped, domain.StatusFailed:
	default:
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
	}
	if requiresReason(requested) && strings.TrimSpace(reason) == "" {
		return false, fmt.Errorf("%w for %s", ErrMissingReason, requested)
	}
	if IsTerminal(current) {
		if requested == current && reason == priorReason {
			return true, nil
		}
		return false, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, current)
	}
	switch current {
	case domain.StatusPending:
		switch requested {
		case domain.StatusInProgress, domain.StatusSkipped, domain.StatusFailed:
			return false, nil
		}
	case domain.StatusInProgress:
		switch requested {
		case domain.StatusCompleted, domain.StatusSkipped, domain.StatusFailed:
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
}

func requiresReason(status string) bool {
	return status == domain.StatusSkipped || status == domain.StatusFailed
}
