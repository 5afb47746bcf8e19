// Package cdc implements the change-data-capture log of spec section
// 4.4: a typed read view over the CdcEvent-kind rows pkg/store writes as
// part of every commit, plus an in-process live broker (Broker) that fans
// a commit's events out to registered flow consumers as a wake-up signal.
//
// The log itself needs no writer: store.Store.Commit already appends one
// CdcEvent row per delta, atomically with the delta it describes (see
// memstore.go/boltstore.go Commit). This package only adds the read-side
// convenience spec section 4.4's operation table names (get/range/scan)
// and the live fan-out broker grounded on the teacher's
// pkg/events/events.go Subscriber/Broker.
package cdc

import (
	"context"
	"encoding/json"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
)

// maxVersion is an upper bound passed to store.Range so every CDC event
// ever committed is visible, regardless of the reader's own transaction
// version — the CDC log is append-only and never tombstoned, so there is
// no meaningful "as of version V" read for it beyond "everything so far".
const maxVersion = types.Version(^uint64(0))

// Log is the read-only view over the committed CDC event stream.
type Log struct {
	store store.Store
}

// NewLog constructs a Log over s.
func NewLog(s store.Store) *Log {
	return &Log{store: s}
}

// Get returns every event committed at exactly version v, ordered by
// sequence.
func (l *Log) Get(ctx context.Context, v types.Version) ([]types.CDCEvent, error) {
	return l.scanRange(ctx, key.CdcRangeForVersion(v))
}

// Range returns every event with version in [lo, hi), ordered by
// (version, sequence).
func (l *Log) Range(ctx context.Context, lo, hi types.Version) ([]types.CDCEvent, error) {
	return l.scanRange(ctx, key.CdcRange(lo, hi))
}

// Scan returns the entire CDC log from the beginning, ordered by
// (version, sequence).
func (l *Log) Scan(ctx context.Context) ([]types.CDCEvent, error) {
	return l.scanRange(ctx, key.CdcScanAll())
}

// Prune physically removes every CDC event committed strictly before
// `before`, spec section 4.4's "events remain available until all
// registered consumers have acknowledged them" retention contract.
// Callers are responsible for computing `before` as the minimum
// checkpoint across every registered flow consumer (pkg/engine's GC loop
// does this). Unlike an ordinary mutation, pruning must not itself
// append new CDC events for the keys it removes — this package's own
// doc comment calls the log "append-only and never tombstoned" for
// readers, and that holds for everything at or after `before`; Prune
// only reclaims space for events already fully acknowledged. Backends
// that support physical removal implement store.Pruner; Prune is a
// no-op (0, nil) against one that doesn't.
func (l *Log) Prune(ctx context.Context, before types.Version) (int, error) {
	pruner, ok := l.store.(store.Pruner)
	if !ok {
		return 0, nil
	}
	n, err := pruner.PruneRange(ctx, key.CdcRange(0, before))
	if err != nil {
		return 0, types.Wrap(types.CodeStorageFailure, err, "prune cdc log")
	}
	return n, nil
}

func (l *Log) scanRange(ctx context.Context, r key.Range) ([]types.CDCEvent, error) {
	it, err := l.store.Range(ctx, r, maxVersion)
	if err != nil {
		return nil, types.Wrap(types.CodeStorageFailure, err, "scan cdc log")
	}
	defer it.Close()

	var events []types.CDCEvent
	for it.Next() {
		var ev types.CDCEvent
		if err := json.Unmarshal(it.Entry().Value, &ev); err != nil {
			return nil, types.Wrap(types.CodeStorageFailure, err, "decode cdc event")
		}
		events = append(events, ev)
	}
	if err := it.Err(); err != nil {
		return nil, types.Wrap(types.CodeStorageFailure, err, "iterate cdc log")
	}
	return events, nil
}
