// Package persistence implements the optional append-only event log and
// periodic zstd-framed snapshots spec.md §4.6 describes, grounded on the
// teacher's own binary framing helpers (common.WriteUint32/WriteBytes32,
// the same length-prefixing idiom the teacher's trie codec uses) and on
// other_examples' pulumi snapshot/journal idiom for the
// write-temp-then-rename snapshot discipline. zstd compression comes from
// klauspost/compress, directory locking from gofrs/flock, and group-commit
// batching follows golang.org/x/sync's cooperative-scheduling style also
// used by the eventbus.
package persistence

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/atomic"

	"github.com/docweave/docweave/common"
	"github.com/docweave/docweave/eventbus"
	"github.com/docweave/docweave/logging"
	"github.com/docweave/docweave/metrics"
	"github.com/docweave/docweave/runtime"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/state"
	"github.com/docweave/docweave/step"
)

// WriterOption configures optional Writer dependencies not covered by
// Options (spec.md §2.2's ambient logging concern).
type WriterOption func(*Writer)

// WithLogger attaches a Logger a Writer uses for append/flush/snapshot
// diagnostics. The default is logging.Discard.
func WithLogger(l logging.Logger) WriterOption {
	return func(w *Writer) { w.log = l }
}

// WithMetrics attaches a metrics.Collector a Writer reports append,
// snapshot, and health-error counts to. The default is metrics.Noop.
func WithMetrics(c *metrics.Collector) WriterOption {
	return func(w *Writer) { w.metrics = c }
}

// computeSchemaHash computes a stable digest of s's spec, recorded in snapshot
// sidecars so recovery can detect a schema mismatch (spec.md §4.6).
func computeSchemaHash(s *schema.Schema) string {
	raw, err := json.Marshal(s.Spec())
	if err != nil {
		panic(err) // SchemaSpec is always plain JSON-able data
	}
	sum := common.Blake2b256(raw)
	return hex.EncodeToString(sum[:])
}

// Writer owns one document directory's log file exclusively (spec.md §5:
// "the persistence writer owns its log file exclusively; callers enqueue
// records through a bounded channel"). Its own mutex plays that role here:
// every Append serializes through it rather than a separate queue
// goroutine, since file writes are already fast relative to fsync.
type Writer struct {
	dir        string
	schema     *schema.Schema
	schemaHash string
	opts       Options

	lock    *flock.Flock
	logFile *os.File
	enc     *zstd.Encoder
	dec     *zstd.Decoder

	mu         sync.Mutex
	cond       *sync.Cond
	pendingGen uint64
	flushedGen uint64

	bytesSinceSnapshot int64
	eventsSinceSnapshot int
	lastSnapshot        time.Time
	closed              bool

	lsn atomic.Uint64

	log     logging.Logger
	metrics *metrics.Collector

	health chan HealthEvent

	tickerDone chan struct{}

	sub     *eventbus.Subscription
	subDone chan struct{}
}

// Open creates (or reopens) dir's log file, flocking the directory so at
// most one Writer ever appends to it. startLSN is the last LSN already
// used, normally the value Recover returned; the first Append is assigned
// startLSN+1.
func Open(dir string, s *schema.Schema, opts Options, startLSN uint64, writerOpts ...WriterOption) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, newIoError("mkdir", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, newIoError("flock", err)
	}
	if !locked {
		return nil, newIoError("flock", common.ErrClosed)
	}

	f, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, newIoError("open log", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = f.Close()
		_ = lock.Unlock()
		return nil, newIoError("new zstd encoder", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = f.Close()
		_ = lock.Unlock()
		return nil, newIoError("new zstd decoder", err)
	}

	w := &Writer{
		dir:        dir,
		schema:     s,
		schemaHash: computeSchemaHash(s),
		opts:       opts,
		lock:       lock,
		logFile:    f,
		enc:        enc,
		dec:        dec,
		health:     make(chan HealthEvent, 16),
		lastSnapshot: time.Now(),
		log:          logging.Discard,
		metrics:      metrics.Noop,
	}
	for _, opt := range writerOpts {
		opt(w)
	}
	w.cond = sync.NewCond(&w.mu)
	w.lsn.Store(startLSN)

	if opts.Mode == AsyncDurable {
		w.tickerDone = make(chan struct{})
		go w.runGroupCommit()
	}
	w.log.Info("writer opened", logging.F("dir", dir), logging.F("start_lsn", startLSN), logging.F("mode", int(opts.Mode)))
	return w, nil
}

// SchemaHash returns the stable hash of the schema this Writer was opened
// with, recorded in every snapshot sidecar.
func (w *Writer) SchemaHash() string { return w.schemaHash }

// Health returns the channel HealthEvents are delivered on (spec.md §5.6's
// supplement).
func (w *Writer) Health() <-chan HealthEvent { return w.health }

func (w *Writer) reportHealth(lsn uint64, err error) {
	if err == nil {
		return
	}
	w.log.Error("persistence health event", logging.F("lsn", lsn), logging.F("err", err.Error()))
	w.metrics.PersistenceHealthErrors.Inc()
	select {
	case w.health <- HealthEvent{LSN: lsn, Err: err, Time: time.Now()}:
	default:
	}
}

// Append encodes and writes one committed transaction's steps as a single
// log record, returning its assigned LSN. Durability before Append returns
// depends on Mode (spec.md §4.6).
func (w *Writer) Append(steps []step.Step) (uint64, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0, common.ErrClosed
	}
	lsn := w.lsn.Inc()
	mode := w.opts.Mode
	enc := w.enc
	w.mu.Unlock()

	rec, err := encodeRecord(enc, lsn, steps)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0, common.ErrClosed
	}
	_, writeErr := w.logFile.Write(rec)
	if writeErr != nil {
		w.mu.Unlock()
		err := newIoError("append", writeErr)
		w.reportHealth(lsn, err)
		if mode == SyncDurable {
			return 0, err
		}
		return lsn, nil
	}
	w.bytesSinceSnapshot += int64(len(rec))
	w.eventsSinceSnapshot++
	w.pendingGen++
	myGen := w.pendingGen
	w.mu.Unlock()
	w.metrics.PersistenceAppends.Inc()

	switch mode {
	case SyncDurable:
		if err := w.logFile.Sync(); err != nil {
			err = newIoError("fsync", err)
			w.reportHealth(lsn, err)
			return 0, err
		}
		w.mu.Lock()
		w.flushedGen = myGen
		w.cond.Broadcast()
		w.mu.Unlock()
	case Unsafe:
		// no fsync; durability is whatever the OS/filesystem gives us.
	case AsyncDurable:
		w.waitForFlush(myGen)
	}
	return lsn, nil
}

func (w *Writer) waitForFlush(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.flushedGen < gen && !w.closed {
		w.cond.Wait()
	}
}

// runGroupCommit periodically fsyncs the log file once per GroupWindow,
// waking every Append currently blocked in waitForFlush (spec.md §4.6:
// "records within the window share one fsync").
func (w *Writer) runGroupCommit() {
	ticker := time.NewTicker(w.opts.GroupWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			gen := w.pendingGen
			if gen <= w.flushedGen || w.closed {
				w.mu.Unlock()
				continue
			}
			f := w.logFile
			w.mu.Unlock()

			err := f.Sync()
			w.mu.Lock()
			if err != nil {
				w.mu.Unlock()
				w.reportHealth(0, newIoError("group fsync", err))
				continue
			}
			w.flushedGen = gen
			w.cond.Broadcast()
			w.mu.Unlock()
		case <-w.tickerDone:
			return
		}
	}
}

// Flush blocks until every record appended so far is durable, or ctx is
// canceled (spec.md §4.6: "the caller may request an explicit flush").
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	gen := w.pendingGen
	mode := w.opts.Mode
	f := w.logFile
	w.mu.Unlock()

	if mode == SyncDurable {
		return nil
	}
	if mode == Unsafe {
		return newIoError("flush", f.Sync())
	}

	done := make(chan struct{})
	go func() {
		w.waitForFlush(gen)
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe wires this Writer to bus, appending every transaction in each
// Applied event and triggering snapshots per the configured thresholds.
func (w *Writer) Subscribe(bus *eventbus.Bus) {
	sub := bus.Subscribe()
	w.sub = sub
	w.subDone = make(chan struct{})
	go func() {
		defer close(w.subDone)
		for evt := range sub.Events() {
			applied, ok := evt.(runtime.Applied)
			if !ok {
				continue
			}
			for _, tr := range applied.Transactions {
				if _, err := w.Append(tr.Steps()); err != nil {
					w.reportHealth(0, err)
				}
			}
			w.maybeSnapshot(applied.NewState)
		}
	}()
}

func (w *Writer) maybeSnapshot(s *state.State) {
	w.mu.Lock()
	due := w.eventsSinceSnapshot >= w.opts.SnapshotEveryN ||
		w.bytesSinceSnapshot >= w.opts.SnapshotEveryBytes ||
		(w.opts.SnapshotEvery > 0 && time.Since(w.lastSnapshot) >= w.opts.SnapshotEvery)
	w.mu.Unlock()
	if !due {
		return
	}
	if err := w.Snapshot(s); err != nil {
		w.reportHealth(w.lsn.Load(), err)
	}
}

// Snapshot forces an immediate snapshot of s, regardless of thresholds.
func (w *Writer) Snapshot(s *state.State) error {
	uptoLSN := w.lsn.Load()
	if _, err := writeSnapshot(w.dir, w.enc, s, w.schemaHash, uptoLSN); err != nil {
		return err
	}
	if err := removeOldSnapshots(w.dir, w.opts.RetainLastN); err != nil {
		return err
	}
	w.mu.Lock()
	w.eventsSinceSnapshot = 0
	w.bytesSinceSnapshot = 0
	w.lastSnapshot = time.Now()
	w.mu.Unlock()
	w.metrics.PersistenceSnapshots.Inc()
	w.log.Info("snapshot written", logging.F("upto_lsn", uptoLSN))
	return nil
}

// Close stops background flushing, unsubscribes from the event bus if
// subscribed, and releases the directory lock.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	w.log.Info("writer closing")

	if w.tickerDone != nil {
		close(w.tickerDone)
	}
	if w.sub != nil {
		w.sub.Unsubscribe()
		<-w.subDone
	}

	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()

	w.enc.Close()
	w.dec.Close()
	closeErr := w.logFile.Close()
	unlockErr := w.lock.Unlock()
	if closeErr != nil {
		return newIoError("close log", closeErr)
	}
	if unlockErr != nil {
		return newIoError("unlock", unlockErr)
	}
	return nil
}
