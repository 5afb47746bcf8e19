package flow

import (
	"context"
	"encoding/json"

	"github.com/reifydb/reifydb/pkg/types"
)

// JoinType selects Join's matching semantics, spec section 4.6's
// Join(type, left_keys, right_keys).
type JoinType uint8

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// JoinOperator maintains both sides of a join indexed by their join
// keys, spec section 4.6's Join. On an input diff on one side, it
// probes the other side's state and emits the Cartesian product of
// matches; for an outer join, a row with no match emits a null-padded
// row, and the transition when a match later appears is a
// Delete(null-padded) + Insert(matched) pair.
//
// JoinOperator is fed by a Graph stage whose Apply is called once per
// side: Left consumes left-tagged diffs (see LeftApply/RightApply),
// since Operator.Apply's single ChangeSet stream cannot itself
// distinguish which upstream source produced a diff. Graph construction
// wires each upstream source's output into the matching side method
// rather than into the uniform Operator interface for this node.
type JoinOperator struct {
	index        uint32
	joinType     JoinType
	leftColumns  []types.ColumnID
	leftState    *State // keyed by left join-key tuple -> set of left rows
	rightColumns []types.ColumnID
	rightState   *State // keyed by right join-key tuple -> set of right rows
}

// NewJoinOperator constructs a JoinOperator at the given graph index.
// leftState and rightState must be disjoint (distinct operator indices),
// spec section 4.6's "disjoint between operators" state requirement.
func NewJoinOperator(index uint32, joinType JoinType, leftColumns, rightColumns []types.ColumnID, leftState, rightState *State) *JoinOperator {
	return &JoinOperator{index: index, joinType: joinType, leftColumns: leftColumns, leftState: leftState, rightColumns: rightColumns, rightState: rightState}
}

// Index implements Operator.
func (j *JoinOperator) Index() uint32 { return j.index }

// Apply implements Operator by treating input as left-side diffs, for
// graphs with a single upstream feeding this join (e.g. a self-join or
// a join whose right side is populated separately via RightApply). Most
// graphs call LeftApply/RightApply directly instead of going through the
// uniform Operator interface for a binary node.
func (j *JoinOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	return j.LeftApply(ctx, input)
}

// LeftApply processes diffs arriving from the join's left source.
func (j *JoinOperator) LeftApply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	return j.side(input, j.leftColumns, j.leftState, j.rightState, true)
}

// RightApply processes diffs arriving from the join's right source.
func (j *JoinOperator) RightApply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	return j.side(input, j.rightColumns, j.rightState, j.leftState, false)
}

func (j *JoinOperator) side(input ChangeSet, ownKeys []types.ColumnID, own, other *State, fromLeft bool) (ChangeSet, error) {
	var out ChangeSet
	for _, diff := range input {
		switch diff.Operation {
		case types.OpInsert:
			d, err := j.insert(diff, ownKeys, own, other, fromLeft)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		case types.OpDelete:
			d, err := j.remove(diff, ownKeys, own, other, fromLeft)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		case types.OpUpdate:
			d1, err := j.remove(types.Diff{RowNumber: diff.RowNumber, Operation: types.OpDelete, Pre: diff.Pre, Version: diff.Version}, ownKeys, own, other, fromLeft)
			if err != nil {
				return nil, err
			}
			d2, err := j.insert(types.Diff{RowNumber: diff.RowNumber, Operation: types.OpInsert, Post: diff.Post, Version: diff.Version}, ownKeys, own, other, fromLeft)
			if err != nil {
				return nil, err
			}
			out = append(out, append(d1, d2...)...)
		}
	}
	return out, nil
}

func (j *JoinOperator) insert(diff types.Diff, ownKeys []types.ColumnID, own, other *State, fromLeft bool) (ChangeSet, error) {
	key := joinKey(diff.Post, ownKeys)

	ownBefore, err := loadSideRows(own, key)
	if err != nil {
		return nil, err
	}
	matches, err := loadSideRows(other, key)
	if err != nil {
		return nil, err
	}
	if err := appendSideRow(own, key, diff.RowNumber, diff.Post); err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		if j.outerOnOwnSide(fromLeft) {
			return ChangeSet{{RowNumber: nullPaddedRowNumber(diff.RowNumber), Operation: types.OpInsert, Post: j.combine(diff.Post, nil, fromLeft), Version: diff.Version}}, nil
		}
		return nil, nil
	}

	// own had no rows for this key before this one: other's matches were
	// until now unmatched. If the other side is outer, each of them was
	// emitted null-padded and must be retracted in favor of the matched
	// row it now forms — spec section 4.6's "the transition when a match
	// appears is a Delete(null-padded) + Insert(matched)".
	retractNullPadded := len(ownBefore) == 0 && j.outerOnOwnSide(!fromLeft)

	var out ChangeSet
	for _, m := range matches {
		if retractNullPadded {
			out = append(out, types.Diff{RowNumber: nullPaddedRowNumber(m.RowNumber), Operation: types.OpDelete, Pre: j.combine(m.Row, nil, !fromLeft), Version: diff.Version})
		}
		left, right := diff.RowNumber, m.RowNumber
		if !fromLeft {
			left, right = m.RowNumber, diff.RowNumber
		}
		out = append(out, types.Diff{RowNumber: joinedRowNumber(left, right), Operation: types.OpInsert, Post: j.combine(diff.Post, m.Row, fromLeft), Version: diff.Version})
	}
	return out, nil
}

func (j *JoinOperator) remove(diff types.Diff, ownKeys []types.ColumnID, own, other *State, fromLeft bool) (ChangeSet, error) {
	key := joinKey(diff.Pre, ownKeys)

	matches, err := loadSideRows(other, key)
	if err != nil {
		return nil, err
	}
	if err := removeSideRow(own, key, diff.RowNumber); err != nil {
		return nil, err
	}
	ownAfter, err := loadSideRows(own, key)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		if j.outerOnOwnSide(fromLeft) {
			return ChangeSet{{RowNumber: nullPaddedRowNumber(diff.RowNumber), Operation: types.OpDelete, Pre: j.combine(diff.Pre, nil, fromLeft), Version: diff.Version}}, nil
		}
		return nil, nil
	}

	// own's last row for this key was just removed: other's matches
	// revert from matched to unmatched. If the other side is outer, each
	// must be re-emitted null-padded in place of the joined row being
	// retracted here — the mirror of insert's transition.
	reemitNullPadded := len(ownAfter) == 0 && j.outerOnOwnSide(!fromLeft)

	var out ChangeSet
	for _, m := range matches {
		left, right := diff.RowNumber, m.RowNumber
		if !fromLeft {
			left, right = m.RowNumber, diff.RowNumber
		}
		out = append(out, types.Diff{RowNumber: joinedRowNumber(left, right), Operation: types.OpDelete, Pre: j.combine(diff.Pre, m.Row, fromLeft), Version: diff.Version})
		if reemitNullPadded {
			out = append(out, types.Diff{RowNumber: nullPaddedRowNumber(m.RowNumber), Operation: types.OpInsert, Post: j.combine(m.Row, nil, !fromLeft), Version: diff.Version})
		}
	}
	return out, nil
}

// outerOnOwnSide reports whether a row with no match on fromLeft's side
// should still be emitted null-padded, per the join type.
func (j *JoinOperator) outerOnOwnSide(fromLeft bool) bool {
	switch j.joinType {
	case JoinFull:
		return true
	case JoinLeft:
		return fromLeft
	case JoinRight:
		return !fromLeft
	default:
		return false
	}
}

// combine merges own and matched (matched may be nil for a null-padded
// outer row) into the joined output row, keeping own's columns as-is and
// matched's columns alongside — callers on the left side pass (left,
// right); callers on the right side pass (right, left) and combine
// swaps them back into (left, right) order for a consistent output
// shape regardless of which side triggered the emission.
func (j *JoinOperator) combine(own, matched types.Row, fromLeft bool) types.Row {
	left, right := own, matched
	if !fromLeft {
		left, right = matched, own
	}
	out := make(types.Row, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		out[k] = v
	}
	return out
}

func joinKey(row types.Row, keys []types.ColumnID) []byte {
	var buf []byte
	for _, col := range keys {
		buf = append(buf, encodeValue(row[col])...)
	}
	return buf
}

// storedRow is one side's persisted row together with the row number it
// arrived with, so a later match on the other side can derive a joined
// row's identity from the pair of original row numbers instead of from
// whichever diff triggered the emission (see joinedRowNumber).
type storedRow struct {
	RowNumber types.RowNumber
	Row       types.Row
}

// sideRows is the persisted list of raw rows sharing one join key on one
// side, stored as the state value (JSON-encoded for simplicity — join
// fan-out within a single key is expected to be small relative to a
// table scan, so a compact binary row-set format is not worth the
// complexity here).
type sideRows struct {
	Rows []sideRowEntry `json:"rows"`
}

type sideRowEntry struct {
	RowNumber types.RowNumber         `json:"rowNumber"`
	Values    map[uint64]types.Value `json:"values"`
}

func loadSideRows(state *State, key []byte) ([]storedRow, error) {
	raw, ok, err := state.Get(key)
	if err != nil || !ok {
		return nil, err
	}
	var sr sideRows
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, err
	}
	out := make([]storedRow, len(sr.Rows))
	for i, e := range sr.Rows {
		row := make(types.Row, len(e.Values))
		for col, v := range e.Values {
			row[types.ColumnID(col)] = v
		}
		out[i] = storedRow{RowNumber: e.RowNumber, Row: row}
	}
	return out, nil
}

func appendSideRow(state *State, key []byte, rowNumber types.RowNumber, row types.Row) error {
	existing, err := loadSideRows(state, key)
	if err != nil {
		return err
	}
	existing = append(existing, storedRow{RowNumber: rowNumber, Row: row})
	return saveSideRows(state, key, existing)
}

func removeSideRow(state *State, key []byte, rowNumber types.RowNumber) error {
	existing, err := loadSideRows(state, key)
	if err != nil {
		return err
	}
	for i, r := range existing {
		if r.RowNumber == rowNumber {
			existing = append(existing[:i], existing[i+1:]...)
			break
		}
	}
	if len(existing) == 0 {
		return state.Remove(key)
	}
	return saveSideRows(state, key, existing)
}

func saveSideRows(state *State, key []byte, rows []storedRow) error {
	sr := sideRows{Rows: make([]sideRowEntry, len(rows))}
	for i, r := range rows {
		m := make(map[uint64]types.Value, len(r.Row))
		for col, v := range r.Row {
			m[uint64(col)] = v
		}
		sr.Rows[i] = sideRowEntry{RowNumber: r.RowNumber, Values: m}
	}
	raw, err := json.Marshal(sr)
	if err != nil {
		return err
	}
	return state.Set(key, raw)
}
