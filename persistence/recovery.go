package persistence

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"

	"github.com/docweave/docweave/logging"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/state"
)

// RecoverOption configures optional Recover dependencies not carried by its
// positional parameters (spec.md §2.2's ambient logging concern).
type RecoverOption func(*recoverConfig)

type recoverConfig struct {
	log logging.Logger
}

// WithRecoverLogger attaches a Logger Recover uses to report snapshot and
// replay progress. The default is logging.Discard.
func WithRecoverLogger(l logging.Logger) RecoverOption {
	return func(c *recoverConfig) { c.log = l }
}

// Recover implements spec.md §4.6's recovery procedure: locate the latest
// complete snapshot (if any), rehydrate a State from it, then stream and
// replay every log record after the snapshot's upto_lsn in order. It
// returns the recovered State and the highest LSN actually applied, ready
// to hand to runtime.Resume.
//
// Snapshot plugin_fields are captured on write (see writeSnapshot) but not
// generically replayed here: a plugin's field value is an arbitrary Go
// type erased to interface{}, and spec.md names no shared wire contract
// for it beyond "bytes". Runtime.Resume re-derives every plugin's field
// via StateField.Init instead, the same path a fresh Runtime.Create takes,
// so recovered and freshly created runtimes initialize plugin state
// identically.
func Recover(dir string, cfg state.Config, s *schema.Schema, resources *state.ResourceManager, opts ...RecoverOption) (*state.State, uint64, error) {
	rc := &recoverConfig{log: logging.Discard}
	for _, opt := range opts {
		opt(rc)
	}

	sc, blobPath, hasSnapshot, err := latestSnapshot(dir)
	if err != nil {
		return nil, 0, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, 0, newIoError("new zstd decoder", err)
	}
	defer dec.Close()

	var current *state.State
	uptoLSN := uint64(0)
	if hasSnapshot {
		want := computeSchemaHash(s)
		if sc.SchemaHash != want {
			return nil, 0, newSnapshotCorrupt(blobPath, "schema hash mismatch: want %s got %s", want, sc.SchemaHash)
		}
		p, _, err := readSnapshotBlob(dec, blobPath, sc.Version)
		if err != nil {
			return nil, 0, err
		}
		current = state.Resume(cfg, s, p, sc.Version, resources)
		uptoLSN = sc.UptoLSN
		rc.log.Info("recovered from snapshot", logging.F("upto_lsn", uptoLSN))
	} else {
		current = state.Resume(cfg, s, pool.Empty(), 0, resources)
	}
	lastLSN := uptoLSN

	f, err := os.Open(filepath.Join(dir, "events.log"))
	if err != nil {
		if os.IsNotExist(err) {
			return current, lastLSN, nil
		}
		return nil, 0, newIoError("open log", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var txID uint64
	for {
		lsn, steps, err := readRecord(r, dec)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break // clean end or tolerated partial tail (spec.md §4.6 point 3)
			}
			var corrupt *LogCorrupt
			if errors.As(err, &corrupt) {
				rc.log.Warn("log truncated at corrupt record", logging.F("last_lsn", lastLSN))
				break // stop cleanly at the last good LSN
			}
			return nil, 0, err
		}
		if lsn <= uptoLSN {
			continue // already reflected in the snapshot
		}

		txID++
		tr := state.NewTransaction(txID, current)
		for _, st := range steps {
			if err := tr.Step(st); err != nil {
				return nil, 0, err
			}
		}
		next, err := current.Apply(tr)
		if err != nil {
			return nil, 0, err
		}
		current = next
		lastLSN = lsn
	}
	rc.log.Info("recovery complete", logging.F("last_lsn", lastLSN))
	return current, lastLSN, nil
}
