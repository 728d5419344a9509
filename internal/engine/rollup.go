package engine

import (
	"math"

	"shiftcheck/internal/domain"
)

// RollupResult aggregates the statuses of a node's children. The same
// computation applies subitems -> item and items -> instance; it only
// looks at status strings and is agnostic to the node type.
type RollupResult struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	InProgress int     `json:"in_progress"`
	Pending    int     `json:"pending"`
	Percentage float64 `json:"percentage"`

	// AllActioned is true when every child reached a terminal state.
	AllActioned bool `json:"all_actioned"`

	// CanCompleteParent is false while any child is FAILED; closing the
	// parent over a failure takes an explicit acknowledgment.
	CanCompleteParent bool `json:"can_complete_parent"`

	// DerivedStatus is the parent status implied by the children, empty
	// when there are no children (the parent's own status is authoritative).
	DerivedStatus string `json:"derived_status,omitempty"`
}

// Rollup computes completion statistics and the derived parent status for
// a set of child statuses.
func Rollup(statuses []string) RollupResult {
	r := RollupResult{Total: len(statuses)}
	for _, s := range statuses {
		switch s {
		case domain.StatusCompleted:
			r.Completed++
		case domain.StatusSkipped:
			r.Skipped++
		case domain.StatusFailed:
			r.Failed++
		case domain.StatusInProgress:
			r.InProgress++
		default:
			r.Pending++
		}
	}
	r.CanCompleteParent = r.Failed == 0
	if r.Total == 0 {
		return r
	}
	actioned := r.Completed + r.Skipped + r.Failed
	r.AllActioned = actioned == r.Total
	r.Percentage = math.Round(float64(r.Completed)/float64(r.Total)*10000) / 100

	switch {
	case r.Completed == r.Total:
		r.DerivedStatus = domain.StatusCompleted
	case r.AllActioned:
		r.DerivedStatus = domain.StatusCompletedWithExceptions
	case r.InProgress > 0 || actioned > 0:
		r.DerivedStatus = domain.StatusInProgress
	default:
		r.DerivedStatus = domain.StatusPending
	}
	return r
}

// SubitemStatuses projects subitems onto their status strings for rollup.
func SubitemStatuses(subs []domain.InstanceSubitem) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Status
	}
	return out
}

// ItemStatuses projects items onto their status strings for rollup.
func ItemStatuses(items []domain.InstanceItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Status
	}
	return out
}
