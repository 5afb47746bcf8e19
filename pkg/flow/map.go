package flow

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
)

// Projection computes a new row's columns from an input row. Used by
// both MapOperator (replaces the row) and ExtendOperator (adds to it).
type Projection func(row types.Row) types.Row

// MapOperator replaces each row with the result of applying its
// projection, spec section 4.6's Map(expr_list) transform. Stateless:
// Insert/Delete project their one side; Update projects both sides
// independently and stays an Update (mapping never changes row
// identity, only column values).
type MapOperator struct {
	index   uint32
	project Projection
}

// NewMapOperator constructs a MapOperator at the given graph index.
func NewMapOperator(index uint32, project Projection) *MapOperator {
	return &MapOperator{index: index, project: project}
}

// Index implements Operator.
func (m *MapOperator) Index() uint32 { return m.index }

// Apply implements Operator.
func (m *MapOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	out := make(ChangeSet, len(input))
	for i, d := range input {
		nd := d
		if d.Pre != nil {
			nd.Pre = m.project(d.Pre)
		}
		if d.Post != nil {
			nd.Post = m.project(d.Post)
		}
		out[i] = nd
	}
	return out, nil
}

// ExtendOperator adds computed columns to each row without dropping the
// original ones, spec section 4.6's Extend(expr_list) transform.
// Extend's projection receives the original row and returns only the
// new columns to merge in, distinguishing it from Map which replaces
// the row wholesale.
type ExtendOperator struct {
	index   uint32
	compute Projection
}

// NewExtendOperator constructs an ExtendOperator at the given graph
// index.
func NewExtendOperator(index uint32, compute Projection) *ExtendOperator {
	return &ExtendOperator{index: index, compute: compute}
}

// Index implements Operator.
func (e *ExtendOperator) Index() uint32 { return e.index }

// Apply implements Operator.
func (e *ExtendOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	out := make(ChangeSet, len(input))
	for i, d := range input {
		nd := d
		if d.Pre != nil {
			nd.Pre = extendRow(d.Pre, e.compute(d.Pre))
		}
		if d.Post != nil {
			nd.Post = extendRow(d.Post, e.compute(d.Post))
		}
		out[i] = nd
	}
	return out, nil
}

func extendRow(base types.Row, added types.Row) types.Row {
	out := make(types.Row, len(base)+len(added))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range added {
		out[k] = v
	}
	return out
}
