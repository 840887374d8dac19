package persistence

import "time"

// HealthEvent reports a persistence IO failure observed outside the
// caller's own call stack — the case spec.md §4.6/§7 describe for
// AsyncDurable mode, where a failed background fsync must still reach the
// application somehow ("surfaced via a health channel; subsequent
// dispatches continue").
type HealthEvent struct {
	LSN  uint64
	Err  error
	Time time.Time
}
