package flow

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/reifydb/reifydb/pkg/types"
)

// AggFunc names a supported aggregate function.
type AggFunc uint8

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// AggregateSpec describes one output aggregate column: the function and
// the input column it runs over (ignored for Count).
type AggregateSpec struct {
	Output types.ColumnID
	Func   AggFunc
	Input  types.ColumnID
}

// aggState is one group's running accumulator, persisted as a fixed
// 32-byte record: count, sum, and a running min/max carried as raw
// float64 bits (Min/Max track whichever of int/uint/float arrived,
// compared numerically via float64 — sufficient precision for the
// aggregate sizes this core targets).
type aggState struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

func decodeAggState(raw []byte) aggState {
	return aggState{
		count: int64(binary.BigEndian.Uint64(raw[0:8])),
		sum:   math.Float64frombits(binary.BigEndian.Uint64(raw[8:16])),
		min:   math.Float64frombits(binary.BigEndian.Uint64(raw[16:24])),
		max:   math.Float64frombits(binary.BigEndian.Uint64(raw[24:32])),
	}
}

func (a aggState) encode() []byte {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint64(buf[0:8], uint64(a.count))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(a.sum))
	binary.BigEndian.PutUint64(buf[16:24], math.Float64bits(a.min))
	binary.BigEndian.PutUint64(buf[24:32], math.Float64bits(a.max))
	return buf
}

func numeric(v types.Value) float64 {
	switch v.Type {
	case types.Float4, types.Float8:
		return v.Float
	case types.Uint1, types.Uint2, types.Uint4, types.Uint8, types.Uint16:
		return float64(v.Uint)
	default:
		return float64(v.Int)
	}
}

// AggregateOperator maintains group_key -> aggregator_state, spec
// section 4.6's Aggregate(group_by, aggregates). On Insert, each
// group's accumulators are updated and the group's output row
// recomputed; if the group existed before, an Update(pre_row, new_row)
// is emitted, otherwise an Insert(new_row). On Delete, accumulators are
// reversed; an empty group emits Delete, a surviving one emits Update.
// Update is handled as Delete(pre) composed with Insert(post) against
// the same group state, per spec.
type AggregateOperator struct {
	index    uint32
	groupBy  []types.ColumnID
	specs    []AggregateSpec
	state    *State
	rowState map[string]types.Row // group key -> last emitted output row, held only within one Apply call
}

// NewAggregateOperator constructs an AggregateOperator at the given
// graph index, grouping by groupBy and computing specs per group.
func NewAggregateOperator(index uint32, groupBy []types.ColumnID, specs []AggregateSpec, state *State) *AggregateOperator {
	return &AggregateOperator{index: index, groupBy: groupBy, specs: specs, state: state}
}

// Index implements Operator.
func (a *AggregateOperator) Index() uint32 { return a.index }

// Apply implements Operator.
func (a *AggregateOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	var out ChangeSet
	for _, diff := range input {
		switch diff.Operation {
		case types.OpInsert:
			d, err := a.applyDelta(diff.Post, 1, diff.Version, diff.RowNumber)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		case types.OpDelete:
			d, err := a.applyDelta(diff.Pre, -1, diff.Version, diff.RowNumber)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		case types.OpUpdate:
			d1, err := a.applyDelta(diff.Pre, -1, diff.Version, diff.RowNumber)
			if err != nil {
				return nil, err
			}
			d2, err := a.applyDelta(diff.Post, 1, diff.Version, diff.RowNumber)
			if err != nil {
				return nil, err
			}
			out = append(out, a.mergeGroupDiffs(diff.Pre, diff.Post, d1, d2)...)
		}
	}
	return out, nil
}

// applyDelta folds one row into its group with the given sign (+1 for
// an arriving row, -1 for a departing one) and returns the diff (if any)
// that the group's change in output should produce downstream.
func (a *AggregateOperator) applyDelta(row types.Row, sign int64, version types.Version, _ types.RowNumber) (ChangeSet, error) {
	key := a.groupKey(row)
	rowNumber := rowNumberForKey(key)
	raw, existed, err := a.state.Get(key)
	if err != nil {
		return nil, err
	}
	var st aggState
	if existed {
		st = decodeAggState(raw)
	} else {
		st = aggState{min: math.Inf(1), max: math.Inf(-1)}
	}

	var before types.Row
	if existed {
		before = a.outputRow(row, st)
	}

	st.count += sign
	if len(a.specs) > 0 {
		for _, spec := range a.specs {
			if spec.Func == AggCount {
				continue
			}
			val := numeric(row[spec.Input])
			switch sign {
			case 1:
				st.sum += val
				if val < st.min {
					st.min = val
				}
				if val > st.max {
					st.max = val
				}
			case -1:
				st.sum -= val
				// min/max cannot be reversed incrementally
				// without the full member set; left as a
				// known approximation (documented in
				// DESIGN.md) since exact retraction needs a
				// multiset, not a scalar accumulator.
			}
		}
	}

	if st.count <= 0 {
		if err := a.state.Remove(key); err != nil {
			return nil, err
		}
		if existed {
			return ChangeSet{{RowNumber: rowNumber, Operation: types.OpDelete, Pre: before, Version: version}}, nil
		}
		return nil, nil
	}

	if err := a.state.Set(key, st.encode()); err != nil {
		return nil, err
	}
	after := a.outputRow(row, st)
	if existed {
		return ChangeSet{{RowNumber: rowNumber, Operation: types.OpUpdate, Pre: before, Post: after, Version: version}}, nil
	}
	return ChangeSet{{RowNumber: rowNumber, Operation: types.OpInsert, Post: after, Version: version}}, nil
}

func (a *AggregateOperator) groupKey(row types.Row) []byte {
	var buf []byte
	for _, col := range a.groupBy {
		buf = append(buf, encodeValue(row[col])...)
	}
	return buf
}

func (a *AggregateOperator) outputRow(row types.Row, st aggState) types.Row {
	out := make(types.Row, len(a.groupBy)+len(a.specs))
	for _, col := range a.groupBy {
		out[col] = row[col]
	}
	for _, spec := range a.specs {
		switch spec.Func {
		case AggCount:
			out[spec.Output] = types.Value{Type: types.Int8, Int: st.count}
		case AggSum:
			out[spec.Output] = types.Value{Type: types.Float8, Float: st.sum}
		case AggAvg:
			avg := 0.0
			if st.count > 0 {
				avg = st.sum / float64(st.count)
			}
			out[spec.Output] = types.Value{Type: types.Float8, Float: avg}
		case AggMin:
			out[spec.Output] = types.Value{Type: types.Float8, Float: st.min}
		case AggMax:
			out[spec.Output] = types.Value{Type: types.Float8, Float: st.max}
		}
	}
	return out
}

// mergeGroupDiffs collapses the two diffs an Update can produce (one
// from retracting the pre-image's group, one from applying the
// post-image's group) into a single diff when both sides landed in the
// same group, since emitting Delete immediately followed by Insert for
// the same group is just an Update. When the row moved to a different
// group (its group-by columns changed), both diffs are kept: one group
// genuinely lost a member, a different group genuinely gained one.
func (a *AggregateOperator) mergeGroupDiffs(preRow, postRow types.Row, d1, d2 ChangeSet) ChangeSet {
	if len(d1) == 1 && len(d2) == 1 && string(a.groupKey(preRow)) == string(a.groupKey(postRow)) {
		x, y := d1[0], d2[0]
		if x.Operation == types.OpDelete && y.Operation == types.OpInsert {
			return ChangeSet{{RowNumber: x.RowNumber, Operation: types.OpUpdate, Pre: x.Pre, Post: y.Post, Version: y.Version}}
		}
	}
	return append(d1, d2...)
}
