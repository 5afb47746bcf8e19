package flow

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/require"
)

// testSink builds a view in the catalog, commits its definition, and
// returns a SinkOperator bound to a fresh command transaction that
// writes into it.
func testSink(t *testing.T, m *txn.Manager, cat *catalog.Catalog, viewID types.SourceID, cols []types.Type) (*SinkOperator, *txn.Tx) {
	t.Helper()
	ctx := context.Background()

	admin := m.BeginAdmin(ctx)
	ns := types.Namespace{ID: 1, Name: "ns"}
	nsData, err := catalog.EncodeRow(ns)
	require.NoError(t, err)
	admin.StageDelta(store.Delta{Key: key.NamespaceKey(ns.ID), Value: nsData})

	colIDs := make([]types.ColumnID, len(cols))
	for i := range cols {
		colIDs[i] = types.ColumnID(i + 1)
	}
	view := types.View{ID: viewID, NamespaceID: ns.ID, Name: "v", Columns: colIDs}
	viewDelta, err := catalog.CreateView(view)
	require.NoError(t, err)
	admin.StageDelta(viewDelta)

	for i, ct := range cols {
		col := types.Column{ID: colIDs[i], Source: view.ID, Index: i, Name: "c", Type: ct}
		d, err := catalog.CreateColumn(col)
		require.NoError(t, err)
		admin.StageDelta(d)
	}
	_, err = admin.Commit()
	require.NoError(t, err)

	tx := m.BeginCommand(ctx)
	sink, err := NewSinkOperator(cat, view.ID, m.CurrentVersion(), tx)
	require.NoError(t, err)
	return sink, tx
}

func TestGraphRunAppliesStagesThenWritesSink(t *testing.T) {
	m, _, cat := newTestManager(t)
	sink, tx := testSink(t, m, cat, 100, []types.Type{types.Int8})
	defer tx.Rollback()

	passthrough := passthroughOperator{index: 0}
	g := NewGraph(1, []Operator{&passthrough}, sink)

	input := ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{1: intVal(10)}, Version: 1},
	}
	n, err := g.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestGraphRunShortCircuitsOnEmptyChangeSet(t *testing.T) {
	m, _, cat := newTestManager(t)
	sink, tx := testSink(t, m, cat, 101, []types.Type{types.Int8})
	defer tx.Rollback()

	dropAll := dropAllOperator{index: 0}
	g := NewGraph(1, []Operator{&dropAll}, sink)

	n, err := g.Run(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{1: intVal(5)}, Version: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

// passthroughOperator forwards its input unchanged, standing in for a
// real transform in graph-wiring tests.
type passthroughOperator struct{ index uint32 }

func (p *passthroughOperator) Index() uint32 { return p.index }
func (p *passthroughOperator) Apply(_ context.Context, input ChangeSet) (ChangeSet, error) {
	return input, nil
}

// dropAllOperator discards every diff, exercising Graph.Run's
// empty-change-set short circuit.
type dropAllOperator struct{ index uint32 }

func (d *dropAllOperator) Index() uint32 { return d.index }
func (d *dropAllOperator) Apply(_ context.Context, _ ChangeSet) (ChangeSet, error) {
	return nil, nil
}
