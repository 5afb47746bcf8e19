package flow

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"github.com/reifydb/reifydb/pkg/types"
)

// WindowKind selects how WindowOperator buckets events into windows,
// spec section 4.6's Window(window_type, size, slide, ...).
type WindowKind uint8

const (
	// WindowCount keeps a single window per group (bucket 0): size and
	// slide are not consulted, so such a window is closed only by
	// age- or count-based eviction.
	WindowCount WindowKind = iota
	// WindowDuration buckets by wall-clock time, via the injected
	// types.Clock rather than time.Now directly.
	WindowDuration
)

// windowState is one window's persisted accumulator: its bucket
// identity, member count, and the same running aggregates
// AggregateOperator keeps, reused here rather than duplicated.
type windowState struct {
	Bucket      int64                  `json:"bucket"`
	Opened      int64                  `json:"opened_unix_nano"`
	Agg         aggStateJ              `json:"agg"`
	GroupValues map[uint64]types.Value `json:"group_values"`
}

// aggStateJ is aggState in JSON-friendly form (aggState's own encode/
// decode is the fixed-width binary form AggregateOperator's state uses;
// windows are fewer and longer-lived, so JSON's self-describing cost is
// immaterial here and buys simpler eviction bookkeeping alongside it).
type aggStateJ struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// WindowOperator maintains in-flight windows keyed by window id, spec
// section 4.6's Window. size/slide are durations in nanoseconds and are
// used only by WindowDuration; WindowCount ignores them. On each event the affected
// window's aggregates update; when a window first exists it is
// inserted, on later changes updated, and on eviction (age >
// maxWindowAge or count > maxWindowCount) a terminal Delete is emitted.
type WindowOperator struct {
	index         uint32
	kind          WindowKind
	size          int64
	slide         int64
	groupBy       []types.ColumnID
	specs         []AggregateSpec
	state         *State
	clock         types.Clock
	maxWindowAge  int64 // nanoseconds; 0 means no age-based eviction
	maxWindowCnt  int   // 0 means no count-based eviction
	windowOrder   *State // tracks insertion order of window keys for age- and count-based eviction, a separate state slot (operator index+1) from window contents
}

// NewWindowOperator constructs a WindowOperator at the given graph
// index. windowState and orderState must use distinct operator
// indices.
func NewWindowOperator(index uint32, kind WindowKind, size, slide int64, groupBy []types.ColumnID, specs []AggregateSpec, windowState, orderState *State, clock types.Clock, maxWindowAge int64, maxWindowCount int) *WindowOperator {
	return &WindowOperator{
		index: index, kind: kind, size: size, slide: slide,
		groupBy: groupBy, specs: specs, state: windowState,
		clock: clock, maxWindowAge: maxWindowAge, maxWindowCnt: maxWindowCount,
		windowOrder: orderState,
	}
}

// Index implements Operator.
func (w *WindowOperator) Index() uint32 { return w.index }

// Apply implements Operator.
func (w *WindowOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	var out ChangeSet
	for _, diff := range input {
		switch diff.Operation {
		case types.OpInsert:
			d, err := w.admit(diff.Post, diff.Version, diff.RowNumber)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		case types.OpUpdate:
			d, err := w.admit(diff.Post, diff.Version, diff.RowNumber)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		}
		// Window does not retract members on Delete: once an event
		// has contributed to a window's aggregate, spec section
		// 4.6 models eviction (age/count) as the only source of
		// terminal diffs, not per-member retraction.
	}
	evicted, err := w.evict()
	if err != nil {
		return nil, err
	}
	return append(out, evicted...), nil
}

func (w *WindowOperator) bucketFor(row types.Row) int64 {
	switch w.kind {
	case WindowDuration:
		now := w.clock.Now().UnixNano()
		if w.slide <= 0 {
			return now / w.size
		}
		return now / w.slide
	default:
		return 0 // WindowCount: one window per group; size and slide are not used
	}
}

func (w *WindowOperator) windowKey(groupKey []byte, bucket int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(bucket))
	return append(buf, groupKey...)
}

func (w *WindowOperator) admit(row types.Row, version types.Version, _ types.RowNumber) (ChangeSet, error) {
	groupKey := w.groupKeyFor(row)
	bucket := w.bucketFor(row)
	key := w.windowKey(groupKey, bucket)
	rowNumber := rowNumberForKey(key)

	raw, existed, err := w.state.Get(key)
	if err != nil {
		return nil, err
	}
	var ws windowState
	if existed {
		if err := json.Unmarshal(raw, &ws); err != nil {
			return nil, err
		}
	} else {
		groupValues := make(map[uint64]types.Value, len(w.groupBy))
		for _, col := range w.groupBy {
			groupValues[uint64(col)] = row[col]
		}
		ws = windowState{Bucket: bucket, Opened: w.clock.Now().UnixNano(), GroupValues: groupValues}
		if err := w.trackNewWindow(key); err != nil {
			return nil, err
		}
	}

	var before types.Row
	if existed {
		before = w.outputRow(row, ws)
	}

	ws.Agg.Count++
	for _, spec := range w.specs {
		if spec.Func == AggCount {
			continue
		}
		val := numeric(row[spec.Input])
		ws.Agg.Sum += val
		if !existed || val < ws.Agg.Min {
			ws.Agg.Min = val
		}
		if !existed || val > ws.Agg.Max {
			ws.Agg.Max = val
		}
	}

	raw2, err := json.Marshal(ws)
	if err != nil {
		return nil, err
	}
	if err := w.state.Set(key, raw2); err != nil {
		return nil, err
	}

	after := w.outputRow(row, ws)
	if existed {
		return ChangeSet{{RowNumber: rowNumber, Operation: types.OpUpdate, Pre: before, Post: after, Version: version}}, nil
	}
	return ChangeSet{{RowNumber: rowNumber, Operation: types.OpInsert, Post: after, Version: version}}, nil
}

func (w *WindowOperator) groupKeyFor(row types.Row) []byte {
	var buf []byte
	for _, col := range w.groupBy {
		buf = append(buf, encodeValue(row[col])...)
	}
	return buf
}

func (w *WindowOperator) outputRow(row types.Row, ws windowState) types.Row {
	out := make(types.Row, len(w.groupBy)+len(w.specs)+1)
	for _, col := range w.groupBy {
		if v, ok := row[col]; ok {
			out[col] = v
		} else {
			out[col] = ws.GroupValues[uint64(col)]
		}
	}
	for _, spec := range w.specs {
		switch spec.Func {
		case AggCount:
			out[spec.Output] = types.Value{Type: types.Int8, Int: ws.Agg.Count}
		case AggSum:
			out[spec.Output] = types.Value{Type: types.Float8, Float: ws.Agg.Sum}
		case AggAvg:
			avg := 0.0
			if ws.Agg.Count > 0 {
				avg = ws.Agg.Sum / float64(ws.Agg.Count)
			}
			out[spec.Output] = types.Value{Type: types.Float8, Float: avg}
		case AggMin:
			out[spec.Output] = types.Value{Type: types.Float8, Float: ws.Agg.Min}
		case AggMax:
			out[spec.Output] = types.Value{Type: types.Float8, Float: ws.Agg.Max}
		}
	}
	return out
}

// trackNewWindow records key's arrival order in windowOrder, a FIFO
// index evict() walks for both age-based and count-based eviction.
func (w *WindowOperator) trackNewWindow(key []byte) error {
	if w.maxWindowAge <= 0 && w.maxWindowCnt <= 0 {
		return nil
	}
	raw, ok, err := w.windowOrder.Get([]byte("order"))
	if err != nil {
		return err
	}
	var order [][]byte
	if ok {
		if err := json.Unmarshal(raw, &order); err != nil {
			return err
		}
	}
	order = append(order, key)
	encoded, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return w.windowOrder.Set([]byte("order"), encoded)
}

// evict removes windows older than maxWindowAge or beyond
// maxWindowCount, emitting a terminal Delete diff for each, per spec
// section 4.6's "eviction itself emits a terminal diff for each such
// window".
func (w *WindowOperator) evict() (ChangeSet, error) {
	var out ChangeSet
	if w.maxWindowAge <= 0 && w.maxWindowCnt <= 0 {
		return out, nil
	}

	raw, ok, err := w.windowOrder.Get([]byte("order"))
	if err != nil || !ok {
		return out, err
	}
	var order [][]byte
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, err
	}

	now := w.clock.Now().UnixNano()
	kept := order[:0]
	for i, key := range order {
		rawWs, ok, err := w.state.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var ws windowState
		if err := json.Unmarshal(rawWs, &ws); err != nil {
			return nil, err
		}

		evictByAge := w.maxWindowAge > 0 && now-ws.Opened > w.maxWindowAge
		evictByCount := w.maxWindowCnt > 0 && len(order)-i > w.maxWindowCnt
		if evictByAge || evictByCount {
			out = append(out, types.Diff{RowNumber: rowNumberForKey(key), Operation: types.OpDelete, Pre: w.outputRow(types.Row{}, ws)})
			if err := w.state.Remove(key); err != nil {
				return nil, err
			}
			continue
		}
		kept = append(kept, key)
	}

	encoded, err := json.Marshal(kept)
	if err != nil {
		return nil, err
	}
	if err := w.windowOrder.Set([]byte("order"), encoded); err != nil {
		return nil, err
	}
	return out, nil
}
