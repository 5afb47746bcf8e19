package txn

import (
	"context"
	"sort"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/metrics"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
)

// Tx is a single transaction: a pinned read version, an ordered write
// buffer, and (for Serializable isolation) the set of keys it has
// observed. Not safe for concurrent use by multiple goroutines.
type Tx struct {
	manager     *Manager
	ctx         context.Context
	kind        Kind
	readVersion types.Version

	writes     map[string]store.Delta
	writeOrder []string
	readSet    map[string]struct{}

	adminLocked bool
	done        bool
}

// Kind returns the transaction's kind.
func (tx *Tx) Kind() Kind { return tx.kind }

// ReadVersion returns the version this transaction's reads are pinned to.
func (tx *Tx) ReadVersion() types.Version { return tx.readVersion }

// Get returns the value visible to this transaction for k: its own
// uncommitted write if any, else the store's value at the read version.
func (tx *Tx) Get(k []byte) ([]byte, bool, error) {
	if tx.done {
		return nil, false, errTxDone
	}
	if d, ok := tx.writes[string(k)]; ok {
		if d.IsTombstone {
			return nil, false, nil
		}
		return d.Value, true, nil
	}
	tx.readSet[string(k)] = struct{}{}
	val, ok, err := tx.manager.store.Get(tx.ctx, k, tx.readVersion)
	if err != nil {
		return nil, false, err
	}
	return val, ok, nil
}

// Range returns every (key, value) in r visible at the read version,
// ascending. Yielded keys join the transaction's read set for
// Serializable validation.
func (tx *Tx) Range(r key.Range) (store.Iterator, error) {
	if tx.done {
		return nil, errTxDone
	}
	it, err := tx.manager.store.Range(tx.ctx, r, tx.readVersion)
	if err != nil {
		return nil, err
	}
	return tx.trackingIterator(it), nil
}

// RangeRev is Range in descending key order.
func (tx *Tx) RangeRev(r key.Range) (store.Iterator, error) {
	if tx.done {
		return nil, errTxDone
	}
	it, err := tx.manager.store.RangeRev(tx.ctx, r, tx.readVersion)
	if err != nil {
		return nil, err
	}
	return tx.trackingIterator(it), nil
}

// trackingIterator wraps it so every entry it yields is added to the
// transaction's read set before being handed to the caller.
func (tx *Tx) trackingIterator(it store.Iterator) store.Iterator {
	return &readTrackingIterator{Iterator: it, tx: tx}
}

type readTrackingIterator struct {
	store.Iterator
	tx *Tx
}

func (it *readTrackingIterator) Next() bool {
	ok := it.Iterator.Next()
	if ok {
		it.tx.readSet[string(it.Iterator.Entry().Key)] = struct{}{}
	}
	return ok
}

// Set stages a write. Only valid on Command and Admin transactions.
func (tx *Tx) Set(k, v []byte) error {
	if tx.done {
		return errTxDone
	}
	if tx.kind == Query {
		return types.NewError(types.CodeStorageFailure, "query transaction cannot write")
	}
	tx.stage(store.Delta{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
	return nil
}

// Delete stages a tombstone write. Only valid on Command and Admin
// transactions.
func (tx *Tx) Delete(k []byte) error {
	if tx.done {
		return errTxDone
	}
	if tx.kind == Query {
		return types.NewError(types.CodeStorageFailure, "query transaction cannot write")
	}
	tx.stage(store.Delta{Key: append([]byte(nil), k...), IsTombstone: true})
	return nil
}

// StageDelta is Set/Delete generalized to an already-built Delta, used by
// the catalog mutation helpers in catalog_ops.go so they can fold
// multi-delta builders (e.g. CreateNamespace's id bump + row write) into
// the same write buffer without re-deriving the Delta shape.
func (tx *Tx) StageDelta(d store.Delta) {
	tx.stage(d)
}

func (tx *Tx) stage(d store.Delta) {
	ks := string(d.Key)
	if _, exists := tx.writes[ks]; !exists {
		tx.writeOrder = append(tx.writeOrder, ks)
	}
	tx.writes[ks] = d
}

var errTxDone = types.NewError(types.CodeStorageFailure, "transaction already committed or rolled back")

// Rollback discards the write buffer and read set. A no-op for Query
// transactions beyond releasing the admin lock, if held.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.finish()
}

func (tx *Tx) finish() {
	tx.done = true
	metrics.ActiveTransactions.WithLabelValues(tx.kind.String()).Dec()
	if tx.adminLocked {
		tx.manager.adminMu.Unlock()
	}
}

// Commit validates the transaction against the manager's conflict set,
// installs its writes atomically at a freshly allocated version, and —
// for Admin transactions — updates the materialized catalog from the
// resulting CDC events. Returns a retryable serialization-conflict error
// if validation fails; the write buffer is discarded either way.
func (tx *Tx) Commit() ([]types.CDCEvent, error) {
	if tx.done {
		return nil, errTxDone
	}
	defer tx.finish()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CommitDuration, tx.kind.String())

	if tx.kind == Query || len(tx.writes) == 0 {
		metrics.TransactionsTotal.WithLabelValues(tx.kind.String(), "committed").Inc()
		return nil, nil
	}

	m := tx.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := tx.validateLocked(); err != nil {
		metrics.TransactionsTotal.WithLabelValues(tx.kind.String(), "conflict").Inc()
		metrics.SerializationConflictsTotal.Inc()
		return nil, err
	}

	vc := types.Version(m.nextVersion.Add(1))

	deltas := make([]store.Delta, 0, len(tx.writeOrder))
	for _, k := range tx.writeOrder {
		deltas = append(deltas, tx.writes[k])
	}

	events, err := m.store.Commit(tx.ctx, deltas, vc, types.TxID(0))
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues(tx.kind.String(), "failed").Inc()
		return nil, err
	}

	for _, k := range tx.writeOrder {
		m.pending[k] = vc
	}

	if tx.kind == Admin {
		for _, ev := range events {
			m.catalog.Apply(ev)
		}
	}

	metrics.CurrentVersion.Set(float64(vc))
	metrics.CDCEventsAppended.Add(float64(len(events)))
	metrics.TransactionsTotal.WithLabelValues(tx.kind.String(), "committed").Inc()

	m.notify(events)

	return events, nil
}

// validateLocked checks the transaction's conflict set (write set for
// Optimistic, write ∪ read set for Serializable) against the manager's
// pending map, which records the latest committed version of every key
// any prior transaction has written. Must be called with m.mu held.
func (tx *Tx) validateLocked() error {
	conflictKeys := make(map[string]struct{}, len(tx.writes)+len(tx.readSet))
	for k := range tx.writes {
		conflictKeys[k] = struct{}{}
	}
	if tx.manager.isolation == Serializable {
		for k := range tx.readSet {
			conflictKeys[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(conflictKeys))
	for k := range conflictKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if v, ok := tx.manager.pending[k]; ok && v > tx.readVersion {
			return types.NewError(types.CodeSerializationConflict,
				"key was committed at version %d, after this transaction's read version %d", v, tx.readVersion)
		}
	}
	return nil
}
