package testutil

import (
	"context"
	"sync"

	"github.com/roach88/keepsake/internal/payload"
)

// SchedulerCall records one call made to a RecordingScheduler.
type SchedulerCall struct {
	Op     string // "schedule" or "cancel"
	GoalID string
}

// RecordingScheduler is a notification scheduler fake that records calls
// and can be told to fail.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingScheduler struct {
	mu    sync.Mutex
	calls []SchedulerCall

	// FailSchedule, when set, is returned from every Schedule call.
	FailSchedule error
	// FailCancel, when set, is returned from every Cancel call.
	FailCancel error
}

// NewRecordingScheduler creates an empty recorder.
func NewRecordingScheduler() *RecordingScheduler {
	return &RecordingScheduler{}
}

// Schedule records the call.
func (r *RecordingScheduler) Schedule(_ context.Context, goal payload.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, SchedulerCall{Op: "schedule", GoalID: goal.ID})
	return r.FailSchedule
}

// Cancel records the call.
func (r *RecordingScheduler) Cancel(_ context.Context, goalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, SchedulerCall{Op: "cancel", GoalID: goalID})
	return r.FailCancel
}

// Calls returns a copy of every recorded call in order.
func (r *RecordingScheduler) Calls() []SchedulerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SchedulerCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Scheduled returns the goal ids passed to Schedule, in call order.
func (r *RecordingScheduler) Scheduled() []string {
	return r.idsFor("schedule")
}

// Cancelled returns the goal ids passed to Cancel, in call order.
func (r *RecordingScheduler) Cancelled() []string {
	return r.idsFor("cancel")
}

// Reset forgets all recorded calls.
func (r *RecordingScheduler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *RecordingScheduler) idsFor(op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []string{}
	for _, c := range r.calls {
		if c.Op == op {
			ids = append(ids, c.GoalID)
		}
	}
	return ids
}
