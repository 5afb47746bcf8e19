package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/types"
)

// versionEntry is one entry in a key's version chain: a value (or
// tombstone) installed at a specific commit version. Visibility follows
// other_examples' mvcc/version.go IsVisibleTo rule, simplified because
// this store only ever holds already-committed entries (uncommitted
// writes live in the transaction's write buffer, in pkg/txn, until
// commit time) — so there is no "visible only to the creating
// transaction" case to handle here.
type versionEntry struct {
	version     types.Version
	value       []byte
	isTombstone bool
}

// memStore is the in-memory backend: a single map of key -> ascending
// version chain, each chain append-only and binary-searched for
// visibility. Commits take a single coarse mutex; this tier targets
// correctness and small working sets (tests, short-lived processes), and
// commits on disjoint keys do not run in parallel.
type memStore struct {
	mu   sync.RWMutex
	data map[string][]versionEntry
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() Store {
	return &memStore{data: make(map[string][]versionEntry)}
}

// visibleLocked returns the entry visible at version v for the given
// key's chain, via binary search over the ascending version slice.
func visibleLocked(chain []versionEntry, v types.Version) (versionEntry, bool) {
	i := sort.Search(len(chain), func(i int) bool { return chain[i].version > v })
	if i == 0 {
		return versionEntry{}, false
	}
	return chain[i-1], true
}

func (m *memStore) getLocked(k []byte, v types.Version) ([]byte, bool) {
	chain, found := m.data[string(k)]
	if !found {
		return nil, false
	}
	e, ok := visibleLocked(chain, v)
	if !ok || e.isTombstone {
		return nil, false
	}
	return e.value, true
}

func (m *memStore) Get(_ context.Context, k []byte, v types.Version) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.getLocked(k, v)
	return val, ok, nil
}

func (m *memStore) Contains(ctx context.Context, k []byte, v types.Version) (bool, error) {
	_, ok, err := m.Get(ctx, k, v)
	return ok, err
}

func (m *memStore) Range(_ context.Context, r key.Range, v types.Version) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var entries []Entry
	for _, k := range keys {
		if r.Start != nil && k < string(r.Start) {
			continue
		}
		if r.End != nil && k >= string(r.End) {
			continue
		}
		if val, ok := m.getLocked([]byte(k), v); ok {
			entries = append(entries, Entry{Key: []byte(k), Value: val})
		}
	}
	return newSliceIterator(entries), nil
}

func (m *memStore) RangeRev(ctx context.Context, r key.Range, v types.Version) (Iterator, error) {
	it, err := m.Range(ctx, r, v)
	if err != nil {
		return nil, err
	}
	si := it.(*sliceIterator)
	for i, j := 0, len(si.entries)-1; i < j; i, j = i+1, j-1 {
		si.entries[i], si.entries[j] = si.entries[j], si.entries[i]
	}
	return si, nil
}

func (m *memStore) Commit(_ context.Context, deltas []Delta, v types.Version, _ types.TxID) ([]types.CDCEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]types.CDCEvent, 0, len(deltas))
	now := time.Now()

	// Reject a duplicate (key, version) before installing anything, so a
	// failed commit leaves the store unchanged.
	seen := make(map[string]bool, len(deltas))
	for _, d := range deltas {
		chain := m.data[string(d.Key)]
		if seen[string(d.Key)] || (len(chain) > 0 && chain[len(chain)-1].version == v) {
			return nil, types.NewError(types.CodeStorageFailure,
				"duplicate (key, version) in commit: key already has an entry at version %d", v)
		}
		seen[string(d.Key)] = true
	}

	for i, d := range deltas {
		chain := m.data[string(d.Key)]

		pre, preOK := m.getLocked(d.Key, v-1)

		op := types.OpInsert
		switch {
		case d.IsTombstone:
			op = types.OpDelete
		case preOK:
			op = types.OpUpdate
		}

		m.data[string(d.Key)] = append(chain, versionEntry{version: v, value: d.Value, isTombstone: d.IsTombstone})

		ev := types.CDCEvent{
			Version:   v,
			Sequence:  uint32(i + 1),
			Key:       append([]byte(nil), d.Key...),
			Operation: op,
			Timestamp: now,
		}
		if preOK {
			ev.Pre = pre
		}
		if !d.IsTombstone {
			ev.Post = d.Value
		}
		events = append(events, ev)

		evBytes, err := json.Marshal(ev)
		if err != nil {
			return nil, types.Wrap(types.CodeStorageFailure, err, "encode cdc event")
		}
		evKey := key.CdcEventKey{Version: v, Sequence: ev.Sequence}.Encode()
		m.data[string(evKey)] = append(m.data[string(evKey)], versionEntry{version: v, value: evBytes})
	}
	return events, nil
}

// PruneRange implements Pruner by deleting every key (and its whole
// version chain) whose key falls in r, in place. No CDC events are
// produced; this is physical reclamation, not a commit.
func (m *memStore) PruneRange(_ context.Context, r key.Range) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.data {
		if r.Start != nil && k < string(r.Start) {
			continue
		}
		if r.End != nil && k >= string(r.End) {
			continue
		}
		delete(m.data, k)
		n++
	}
	return n, nil
}

func (m *memStore) Close() error { return nil }

var _ Store = (*memStore)(nil)
var _ Pruner = (*memStore)(nil)
