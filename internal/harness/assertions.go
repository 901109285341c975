package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/keepsake/internal/testutil"
)

// Check compares a run's final state with exp and returns one message per
// failed expectation. An empty result means every expectation held.
func Check(res *Result, exp Expectation) []string {
	var failures []string

	if exp.Goals != nil {
		got := make([]string, len(res.Goals))
		for i, g := range res.Goals {
			got[i] = g.ID
		}
		failures = appendMismatch(failures, "goals", exp.Goals, got)
	}

	if exp.Trash != nil {
		got := make([]string, len(res.Trash))
		for i, item := range res.Trash {
			got[i] = item.ID
		}
		failures = appendMismatch(failures, "trash", exp.Trash, got)
	}

	if exp.Conflicts != nil && *exp.Conflicts != res.Conflicts {
		failures = append(failures, fmt.Sprintf("conflicts: want %d, got %d", *exp.Conflicts, res.Conflicts))
	}

	if exp.Scheduled != nil {
		failures = appendMismatch(failures, "scheduled", exp.Scheduled, callsFor(res.Calls, "schedule"))
	}
	if exp.Cancelled != nil {
		failures = appendMismatch(failures, "cancelled", exp.Cancelled, callsFor(res.Calls, "cancel"))
	}
	return failures
}

func appendMismatch(failures []string, what string, want, got []string) []string {
	if slices.Equal(want, got) {
		return failures
	}
	return append(failures, fmt.Sprintf("%s: want %v, got %v", what, want, got))
}

func callsFor(calls []testutil.SchedulerCall, op string) []string {
	ids := []string{}
	for _, c := range calls {
		if c.Op == op {
			ids = append(ids, c.GoalID)
		}
	}
	return ids
}
