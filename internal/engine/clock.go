package engine

import "time"

// Clock supplies wall-clock time for timestamps the engine assigns
// (exportedAt, deletedAt, restore updatedAt) and for the purge cutoff.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time, truncated to the microsecond and in UTC
// so timestamps survive a round trip through any store unchanged.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
