package engine

import "time"

// Clock supplies the timestamps stamped on audit entries and checkpoints.
//
// Ordering never depends on the clock: audit entries are ordered by their
// per-run Seq and checkpoints by the store's sequence.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
