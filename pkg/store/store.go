// Package store implements the multi-version store of spec section 4.1:
// it persists (key, version) -> value | tombstone, serves point and range
// reads at an explicit version, and accepts atomic multi-key commits that
// also produce the CDC events for those commits (pkg/cdc wraps the
// CdcEvent-kind rows this package writes as part of every commit).
//
// Three backends implement Store: memstore (in-memory, grounded on
// other_examples' mvcc/version.go version-chain/visibility design),
// boltstore (embedded single-file, grounded on the teacher's
// pkg/storage/boltdb.go bucket/Update/View idiom), and tiered (composes
// two backends by key range or age, grounded on the teacher's
// pkg/reconciler ticker-loop for its background migration sweep).
package store

import (
	"context"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/types"
)

// Delta is one write in a commit's deltas: a key plus either a new value
// or a tombstone marker.
type Delta struct {
	Key         []byte
	Value       []byte
	IsTombstone bool
}

// Entry is one (key, value) pair yielded by an iterator.
type Entry struct {
	Key   []byte
	Value []byte
}

// Store is the multi-version store's external API (spec section 4.1's
// operation table).
type Store interface {
	// Get returns the value visible at the largest version <= v, or
	// ok=false if no such entry exists or that entry is a tombstone.
	Get(ctx context.Context, k []byte, v types.Version) (value []byte, ok bool, err error)

	// Contains is equivalent to Get(...).ok.
	Contains(ctx context.Context, k []byte, v types.Version) (bool, error)

	// Range returns every (key, value) with key in [r.Start, r.End)
	// whose visible entry at v is non-tombstone, ascending by key.
	Range(ctx context.Context, r key.Range, v types.Version) (Iterator, error)

	// RangeRev is Range in descending key order.
	RangeRev(ctx context.Context, r key.Range, v types.Version) (Iterator, error)

	// Commit atomically installs every delta at version v, appends
	// one CDC event per delta (in deltas' order, sequence 1..N), and
	// returns those events so the caller (the transaction manager)
	// can hand them to pkg/cdc's live broadcaster.
	Commit(ctx context.Context, deltas []Delta, v types.Version, tx types.TxID) ([]types.CDCEvent, error)

	Close() error
}

// Pruner is implemented by backends that can physically reclaim space
// for keys no longer needed by any reader, as opposed to Commit's
// tombstone (which keeps the key's history for MVCC visibility at older
// versions). pkg/cdc uses it to drop fully-acknowledged CDC events; a
// backend that doesn't implement it simply never reclaims that space.
type Pruner interface {
	// PruneRange physically deletes every key in r across all of its
	// versions, returning the number of entries removed: memstore counts
	// logical keys, boltstore counts physical (key, version) rows. Unlike Commit,
	// this produces no CDC events and is not itself versioned — callers
	// must only prune key ranges no live transaction can still observe.
	PruneRange(ctx context.Context, r key.Range) (int, error)
}

// Iterator yields Entry values in a fixed order, captured as a snapshot
// at construction time so concurrent commits cannot alter what it yields
// (spec section 4.1's iterator snapshot requirement). Restartable by
// calling Range/RangeRev/Prefix again.
type Iterator interface {
	Next() bool
	Entry() Entry
	Err() error
	Close() error
}

// Prefix returns every (key, value) whose key has prefix p — the
// half-open range [p, successor(p)).
func Prefix(ctx context.Context, s Store, p []byte, v types.Version) (Iterator, error) {
	return s.Range(ctx, key.PrefixRange(p), v)
}
