// Package flow implements the incremental flow operator runtime of spec
// section 4.6: a directed acyclic graph of typed operator nodes that
// consume CDC-derived change sets and maintain a sink view's rows
// incrementally, plus (in dispatcher.go) the flow dispatcher of spec
// section 4.5 that feeds each registered flow consumer its CDC batches
// in order, with at-least-once delivery and per-consumer checkpoints.
//
// Per spec section 9's REDESIGN FLAGS, a flow's operator graph is built
// as ordinary Go closures and structs (pkg/flow.Graph), not as a
// persisted, interpreted DAG description — types.FlowDef only records a
// flow's identity and sink, not its operators.
package flow

import (
	"context"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
)

// State is a stateful operator's private keyspace within one flow,
// addressed by key.FlowStateKey's (flow id, operator index) prefix so
// operators never collide, riding the same transaction manager as sink
// writes so operator state and sink rows become visible atomically at
// the same commit version — spec section 4.6's "State store per
// operator" requirement.
type State struct {
	tx       *txn.Tx
	flow     types.FlowID
	operator uint32
}

// NewState returns the private state keyspace for operator within flow,
// scoped to tx.
func NewState(tx *txn.Tx, flow types.FlowID, operator uint32) *State {
	return &State{tx: tx, flow: flow, operator: operator}
}

func (s *State) key(userKey []byte) key.FlowStateKey {
	return key.FlowStateKey{Flow: s.flow, Operator: s.operator, UserKey: userKey}
}

// Get returns the value stored under userKey, if any.
func (s *State) Get(userKey []byte) ([]byte, bool, error) {
	return s.tx.Get(s.key(userKey).Encode())
}

// Set stores value under userKey.
func (s *State) Set(userKey, value []byte) error {
	return s.tx.Set(s.key(userKey).Encode(), value)
}

// Remove deletes the value stored under userKey, if any.
func (s *State) Remove(userKey []byte) error {
	return s.tx.Delete(s.key(userKey).Encode())
}

// PrefixIter iterates every (userKey, value) pair whose userKey has the
// given prefix, in ascending key order. The returned iterator strips the
// operator's FlowStateKey prefix, so its Entry keys are the user-supplied
// keys as passed to Set.
func (s *State) PrefixIter(ctx context.Context, prefix []byte) (StateIterator, error) {
	full := append(append([]byte{}, s.key(nil).Encode()...), prefix...)
	r := key.PrefixRange(full)
	it, err := s.tx.Range(r)
	if err != nil {
		return StateIterator{}, err
	}
	return StateIterator{it: it, trim: len(s.key(nil).Encode())}, nil
}

// Clear removes every entry in this operator's keyspace.
func (s *State) Clear(ctx context.Context) error {
	r := key.FlowStatePrefix(s.flow, s.operator)
	it, err := s.tx.Range(r)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		if err := s.tx.Delete(it.Entry().Key); err != nil {
			return err
		}
	}
	return it.Err()
}

// StateIterator wraps a raw store iterator, trimming the FlowStateKey
// prefix off each yielded key so callers see only their own user key.
type StateIterator struct {
	it   store.Iterator
	trim int
}

// Next advances the iterator. It must be called before the first Entry.
func (si StateIterator) Next() bool { return si.it.Next() }

// Entry returns the current (userKey, value) pair, with the
// FlowStateKey prefix already trimmed off the key.
func (si StateIterator) Entry() (userKey, value []byte) {
	e := si.it.Entry()
	return e.Key[si.trim:], e.Value
}

// Err returns any error encountered during iteration.
func (si StateIterator) Err() error { return si.it.Err() }

// Close releases the iterator's resources.
func (si StateIterator) Close() error { return si.it.Close() }
