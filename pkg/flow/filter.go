package flow

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
)

// Predicate reports whether a row should survive a FilterOperator. The
// executor that compiles RQL predicates into these closures is out of
// this core's scope (spec section 9's REDESIGN FLAGS: no persisted,
// interpreted expression language); predicates are supplied directly as
// Go closures when the graph is built.
type Predicate func(row types.Row) bool

// FilterOperator drops diffs whose row does not satisfy its predicate —
// spec section 4.6's Filter(predicate) transform. It is stateless: an
// Insert/Delete is kept or dropped based on its one row. An Update is
// re-evaluated on both sides independently since a row can cross the
// predicate's boundary in either direction:
//   - both sides pass: forward the Update unchanged.
//   - only the pre-image passed: the row just left the view, emit Delete(pre).
//   - only the post-image passes: the row just entered the view, emit Insert(post).
//   - neither passes: drop the diff entirely.
type FilterOperator struct {
	index     uint32
	predicate Predicate
}

// NewFilterOperator constructs a FilterOperator at the given graph
// index, keeping diffs whose relevant row(s) satisfy keep.
func NewFilterOperator(index uint32, keep Predicate) *FilterOperator {
	return &FilterOperator{index: index, predicate: keep}
}

// Index implements Operator.
func (f *FilterOperator) Index() uint32 { return f.index }

// Apply implements Operator.
func (f *FilterOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	out := make(ChangeSet, 0, len(input))
	for _, d := range input {
		switch d.Operation {
		case types.OpInsert:
			if f.predicate(d.Post) {
				out = append(out, d)
			}
		case types.OpDelete:
			if f.predicate(d.Pre) {
				out = append(out, d)
			}
		case types.OpUpdate:
			preOK, postOK := f.predicate(d.Pre), f.predicate(d.Post)
			switch {
			case preOK && postOK:
				out = append(out, d)
			case preOK && !postOK:
				out = append(out, types.Diff{RowNumber: d.RowNumber, Operation: types.OpDelete, Pre: d.Pre, Version: d.Version})
			case !preOK && postOK:
				out = append(out, types.Diff{RowNumber: d.RowNumber, Operation: types.OpInsert, Post: d.Post, Version: d.Version})
			}
		}
	}
	return out, nil
}
