package engine

import "shiftcheck/internal/domain"

// NextActionable returns the subitem a worker should act on next: the one
// with the lowest sort order still PENDING or IN_PROGRESS, ties broken by
// id ascending. Returns nil when every subitem has been actioned.
func NextActionable(subs []domain.InstanceSubitem) *domain.InstanceSubitem {
	var next *domain.InstanceSubitem
	for i := range subs {
		s := &subs[i]
		if IsTerminal(s.Status) {
			continue
		}
		if next == nil || s.SortOrder < next.SortOrder || (s.SortOrder == next.SortOrder && s.ID < next.ID) {
			next = s
		}
	}
	if next == nil {
		return nil
	}
	out := *next
	return &out
}

// AllActioned reports whether every subitem has reached a terminal state.
func AllActioned(subs []domain.InstanceSubitem) bool {
	for _, s := range subs {
		if !IsTerminal(s.Status) {
			return false
		}
	}
	return true
}
