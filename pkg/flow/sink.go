package flow

import (
	"context"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/row"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
)

// SinkOperator is a flow DAG's terminal node: it writes a change set
// into the target view's backing rows via the same transaction as the
// rest of the flow's commit, spec section 4.6's SinkView(view_id) — "the
// last node in the DAG writes diffs into the target view's backing
// table via the same transaction at the flow's commit version". Every
// emitted diff carries the row number its identity (a real source row,
// or a group/window key) deterministically maps to (see rownum.go), so
// re-delivering an already-applied batch writes the identical rows
// again: idempotent via upsert-at-version, spec section 4's invariant 9.
type SinkOperator struct {
	tx      *txn.Tx
	view    types.SourceID
	layout  *row.Layout
	columns []types.ColumnID
}

// NewSinkOperator constructs a SinkOperator for the view identified by
// viewID, reading its column list and building a row.Layout from cat at
// version v, writing through tx.
func NewSinkOperator(cat *catalog.Catalog, viewID types.SourceID, v types.Version, tx *txn.Tx) (*SinkOperator, error) {
	view, ok := cat.View(viewID, v)
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "sink view %d not found", viewID)
	}
	fields := make([]types.Type, len(view.Columns))
	for i, colID := range view.Columns {
		col, ok := cat.Column(colID, v)
		if !ok {
			return nil, types.NewError(types.CodeCatalogInconsistency, "sink view %d column %d missing", viewID, colID)
		}
		fields[i] = col.Type
	}
	return &SinkOperator{tx: tx, view: viewID, layout: row.NewLayout(fields), columns: view.Columns}, nil
}

// Write applies every diff in changes to the view's backing rows,
// returning the number of rows written (Inserts and Updates) or
// tombstoned (Deletes). ctx is accepted for symmetry with Operator.Apply
// but unused: the bound tx already carries its own context.
func (s *SinkOperator) Write(ctx context.Context, changes ChangeSet) (int, error) {
	written := 0
	for _, diff := range changes {
		k := key.RowKey{Source: s.view, Row: diff.RowNumber}.Encode()
		switch diff.Operation {
		case types.OpDelete:
			if err := s.tx.Delete(k); err != nil {
				return written, err
			}
		default:
			encoded := s.layout.Encode(s.toFieldMap(diff.Post))
			if err := s.tx.Set(k, encoded); err != nil {
				return written, err
			}
		}
		written++
	}
	return written, nil
}

func (s *SinkOperator) toFieldMap(r types.Row) map[int]types.Value {
	out := make(map[int]types.Value, len(s.columns))
	for i, col := range s.columns {
		if v, ok := r[col]; ok {
			out[i] = v
		}
	}
	return out
}
