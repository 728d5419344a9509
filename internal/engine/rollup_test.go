package engine_test

import (
	"testing"

	"shiftcheck/internal/engine"
)

func TestRollupDerivedStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"empty", nil, ""},
		{"all pending", []string{"PENDING", "PENDING"}, "PENDING"},
		{"one in progress", []string{"IN_PROGRESS", "PENDING"}, "IN_PROGRESS"},
		{"partially actioned", []string{"COMPLETED", "PENDING"}, "IN_PROGRESS"},
		{"all completed", []string{"COMPLETED", "COMPLETED"}, "COMPLETED"},
		{"completed with a skip", []string{"COMPLETED", "SKIPPED"}, "COMPLETED_WITH_EXCEPTIONS"},
		{"completed with a failure", []string{"COMPLETED", "FAILED"}, "COMPLETED_WITH_EXCEPTIONS"},
		{"all skipped", []string{"SKIPPED", "SKIPPED"}, "COMPLETED_WITH_EXCEPTIONS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Rollup(tc.statuses)
			if got.DerivedStatus != tc.want {
				t.Fatalf("derived status: want %q, got %q", tc.want, got.DerivedStatus)
			}
		})
	}
}

func TestRollupCounts(t *testing.T) {
	r := engine.Rollup([]string{"COMPLETED", "COMPLETED", "SKIPPED", "FAILED", "IN_PROGRESS", "PENDING"})
	if r.Total != 6 || r.Completed != 2 || r.Skipped != 1 || r.Failed != 1 || r.InProgress != 1 || r.Pending != 1 {
		t.Fatalf("counts: %+v", r)
	}
	if r.AllActioned {
		t.Fatalf("all actioned should be false with pending work")
	}
	if r.CanCompleteParent {
		t.Fatalf("can complete parent should be false with a failure")
	}
}

func TestRollupPercentage(t *testing.T) {
	// Percentage counts COMPLETED only; skips and failures do not count
	// as progress.
	r := engine.Rollup([]string{"COMPLETED", "COMPLETED", "COMPLETED", "COMPLETED", "SKIPPED"})
	if r.Percentage != 80.0 {
		t.Fatalf("want 80.0, got %v", r.Percentage)
	}
	r = engine.Rollup([]string{"COMPLETED", "PENDING", "PENDING"})
	if r.Percentage != 33.33 {
		t.Fatalf("want 33.33, got %v", r.Percentage)
	}
	r = engine.Rollup(nil)
	if r.Percentage != 0 {
		t.Fatalf("empty set percentage: %v", r.Percentage)
	}
}

func TestRollupAllActioned(t *testing.T) {
	r := engine.Rollup([]string{"COMPLETED", "SKIPPED", "FAILED"})
	if !r.AllActioned {
		t.Fatalf("terminal-only set should be all actioned")
	}
	if r.CanCompleteParent {
		t.Fatalf("failure should block unacknowledged completion")
	}
	r = engine.Rollup([]string{"COMPLETED", "SKIPPED"})
	if !r.CanCompleteParent {
		t.Fatalf("skips alone should not block completion")
	}
}
