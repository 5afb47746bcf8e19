// Package catalog implements the multi-version catalog of spec section
// 4.2: persisted catalog rows living in the multi-version store, a
// materialized in-memory index kept in sync with every commit, and the
// monotonic sequence generators that hand out row numbers, column
// auto-increment values, and catalog entity ids.
package catalog

import (
	"context"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/row"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
)

// sequenceLayout stores one Uint8 (64-bit) counter per row, matching
// original_source's sequence/u64.rs Layout::new(&[Type::Uint8]) — a
// single fixed-width field rather than a bespoke encoding.
var sequenceLayout = row.NewLayout([]types.Type{types.Uint8})

// EncodableKey is satisfied by every key type Next/Peek can address.
type EncodableKey interface {
	Encode() key.Encoded
}

// Next performs the read-bump-write sequence algorithm from
// original_source's u64.rs: read the counter's current value visible at
// v-1, increment it, and return both the new value and the Delta that
// installs it at v. The caller folds this Delta into the transaction's
// write set so the bump is atomic with whatever write consumed the
// sequence value.
func Next(ctx context.Context, s store.Store, k EncodableKey, v types.Version) (uint64, store.Delta, error) {
	encoded := k.Encode()
	current, err := readCounter(ctx, s, encoded, v-1)
	if err != nil {
		return 0, store.Delta{}, err
	}
	if current == ^uint64(0) {
		return 0, store.Delta{}, types.NewError(types.CodeSequenceExhausted,
			"sequence exhausted at key kind %d", encoded.Kind())
	}
	next := current + 1
	return next, store.Delta{Key: encoded, Value: encodeCounter(next)}, nil
}

// Peek returns the sequence's current value without bumping it, or 0 if
// it has never been bumped.
func Peek(ctx context.Context, s store.Store, k EncodableKey, v types.Version) (uint64, error) {
	return readCounter(ctx, s, k.Encode(), v)
}

func readCounter(ctx context.Context, s store.Store, k []byte, v types.Version) (uint64, error) {
	val, ok, err := s.Get(ctx, k, v)
	if err != nil {
		return 0, types.Wrap(types.CodeStorageFailure, err, "read sequence counter")
	}
	if !ok {
		return 0, nil
	}
	return sequenceLayout.GetUint64(val, 0), nil
}

func encodeCounter(v uint64) []byte {
	r := sequenceLayout.AllocateRow()
	sequenceLayout.SetUint64(r, 0, v)
	return r
}
