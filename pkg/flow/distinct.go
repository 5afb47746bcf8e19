package flow

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/reifydb/reifydb/pkg/types"
)

// DistinctOperator suppresses duplicate rows as identified by a list of
// key columns, spec section 4.6's Distinct(key_list) transform. It is
// stateful: State maps the encoded key tuple to a live reference count,
// so an Insert of a key already held by another row is absorbed
// (count++, no output), and a Delete only emits downstream once the
// count drops to zero (the last surviving duplicate is actually gone).
type DistinctOperator struct {
	index   uint32
	keyCols []types.ColumnID
	state   *State
}

// NewDistinctOperator constructs a DistinctOperator at the given graph
// index, deduplicating on keyCols, with its state scoped by state.
func NewDistinctOperator(index uint32, keyCols []types.ColumnID, state *State) *DistinctOperator {
	return &DistinctOperator{index: index, keyCols: keyCols, state: state}
}

// Index implements Operator.
func (d *DistinctOperator) Index() uint32 { return d.index }

// Apply implements Operator.
func (d *DistinctOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	out := make(ChangeSet, 0, len(input))
	for _, diff := range input {
		switch diff.Operation {
		case types.OpInsert:
			first, err := d.bump(diff.Post, 1)
			if err != nil {
				return nil, err
			}
			if first {
				out = append(out, diff)
			}
		case types.OpDelete:
			last, err := d.bump(diff.Pre, -1)
			if err != nil {
				return nil, err
			}
			if last {
				out = append(out, diff)
			}
		case types.OpUpdate:
			preKey, postKey := d.encodeKey(diff.Pre), d.encodeKey(diff.Post)
			if string(preKey) == string(postKey) {
				out = append(out, diff)
				continue
			}
			last, err := d.bumpKey(preKey, -1)
			if err != nil {
				return nil, err
			}
			first, err := d.bumpKey(postKey, 1)
			if err != nil {
				return nil, err
			}
			switch {
			case last && first:
				out = append(out, diff)
			case last && !first:
				out = append(out, types.Diff{RowNumber: diff.RowNumber, Operation: types.OpDelete, Pre: diff.Pre, Version: diff.Version})
			case !last && first:
				out = append(out, types.Diff{RowNumber: diff.RowNumber, Operation: types.OpInsert, Post: diff.Post, Version: diff.Version})
			}
		}
	}
	return out, nil
}

func (d *DistinctOperator) encodeKey(row types.Row) []byte {
	var buf []byte
	for _, col := range d.keyCols {
		buf = append(buf, encodeValue(row[col])...)
	}
	return buf
}

// bump adjusts the reference count for row's key tuple by delta and
// reports whether this call made the count transition into existence
// (delta > 0, count went 0 -> 1) or out of existence (delta < 0, count
// went 1 -> 0).
func (d *DistinctOperator) bump(row types.Row, delta int64) (bool, error) {
	return d.bumpKey(d.encodeKey(row), delta)
}

func (d *DistinctOperator) bumpKey(key []byte, delta int64) (bool, error) {
	raw, ok, err := d.state.Get(key)
	if err != nil {
		return false, err
	}
	var count int64
	if ok {
		count = int64(binary.BigEndian.Uint64(raw))
	}
	count += delta
	switch {
	case count <= 0:
		if err := d.state.Remove(key); err != nil {
			return false, err
		}
	default:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(count))
		if err := d.state.Set(key, buf); err != nil {
			return false, err
		}
	}
	if delta > 0 {
		return count == delta, nil // was 0 before this bump
	}
	return count == 0, nil
}

// encodeValue produces an order-irrelevant but collision-resistant byte
// encoding of a single column value, used as a group-key or join-key
// component by Distinct, Aggregate, Join and Window, never persisted as a
// row key in its own right.
func encodeValue(v types.Value) []byte {
	if v.IsNull {
		return []byte{0}
	}
	buf := make([]byte, 9)
	buf[0] = 1
	switch v.Type {
	case types.Bool:
		if v.Bool {
			buf[1] = 1
		}
		return buf[:2]
	case types.Int1, types.Int2, types.Int4, types.Int8, types.Int16:
		binary.BigEndian.PutUint64(buf[1:], uint64(v.Int))
		return buf
	case types.Uint1, types.Uint2, types.Uint4, types.Uint8, types.Uint16:
		binary.BigEndian.PutUint64(buf[1:], v.Uint)
		return buf
	case types.Float4, types.Float8:
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v.Float))
		return buf
	case types.Utf8, types.Blob:
		out := append([]byte{2}, v.Bytes...)
		return out
	default:
		return buf[:1]
	}
}
