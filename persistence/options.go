package persistence

import "time"

// CommitMode selects the durability/latency tradeoff for Writer.Append
// (spec.md §4.6).
type CommitMode int

const (
	// SyncDurable fsyncs after every record; a successful Append is
	// recoverable across a crash immediately.
	SyncDurable CommitMode = iota
	// AsyncDurable batches records written within GroupWindow behind one
	// shared fsync; Append returns once that batch's fsync completes.
	AsyncDurable
	// Unsafe never fsyncs; the OS/filesystem decides when data hits disk.
	Unsafe
)

// Options configures a Writer's durability mode and snapshot cadence
// (spec.md §4.6: "triggered by any of: N events since last snapshot, B
// bytes of log written, T milliseconds elapsed, whichever first").
type Options struct {
	Mode        CommitMode
	GroupWindow time.Duration

	SnapshotEveryN     int
	SnapshotEveryBytes int64
	SnapshotEvery      time.Duration

	RetainLastN int
}

// DefaultOptions is a reasonable default for interactive use: durable
// per-transaction writes, snapshotting every 1000 events or 16MiB or 5
// minutes, keeping the 3 most recent snapshots.
func DefaultOptions() Options {
	return Options{
		Mode:               SyncDurable,
		GroupWindow:        10 * time.Millisecond,
		SnapshotEveryN:      1000,
		SnapshotEveryBytes: 16 << 20,
		SnapshotEvery:      5 * time.Minute,
		RetainLastN:        3,
	}
}
