package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keepsake/internal/payload"
)

func TestFixedClock_MovesOnlyWhenTold(t *testing.T) {
	start := Time("2024-03-01T10:00:00Z")
	clock := NewFixedClock(start)
	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())

	clock.Advance(Days(2))
	assert.Equal(t, Time("2024-03-03T10:00:00Z"), clock.Now())

	clock.Set(start.Add(-time.Hour))
	assert.Equal(t, Time("2024-03-01T09:00:00Z"), clock.Now())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("trash")
	assert.Equal(t, "trash-1", ids.Generate())
	assert.Equal(t, "trash-2", ids.Generate())

	assert.Equal(t, "id-1", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_ConcurrentAreUnique(t *testing.T) {
	ids := NewSequentialIDs("x")
	const n = 50

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestRecordingScheduler(t *testing.T) {
	ctx := context.Background()
	rec := NewRecordingScheduler()
	at := Time("2024-03-01T10:00:00Z")

	require.NoError(t, rec.Schedule(ctx, Goal("g1", "Walk", at)))
	require.NoError(t, rec.Cancel(ctx, "g2"))
	require.NoError(t, rec.Schedule(ctx, Goal("g3", "Read", at)))

	assert.Equal(t, []SchedulerCall{
		{Op: "schedule", GoalID: "g1"},
		{Op: "cancel", GoalID: "g2"},
		{Op: "schedule", GoalID: "g3"},
	}, rec.Calls())
	assert.Equal(t, []string{"g1", "g3"}, rec.Scheduled())
	assert.Equal(t, []string{"g2"}, rec.Cancelled())

	rec.FailCancel = errors.New("broker down")
	assert.EqualError(t, rec.Cancel(ctx, "g1"), "broker down")
	assert.Len(t, rec.Calls(), 4, "failed calls are still recorded")

	rec.Reset()
	assert.Empty(t, rec.Calls())
}

func TestFixtures_AreValid(t *testing.T) {
	at := Time("2024-03-01T10:00:00Z")
	p := Payload(at, Goal("g1", "Walk", at), RichGoal("g2", at))

	require.NoError(t, payload.Validate(p))
	assert.Equal(t, []string{"g1", "g2"}, p.GoalIDs())
	assert.Equal(t, payload.FormatVersion, p.Version)
}
