package flow

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapOperatorReplacesRowOnInsert(t *testing.T) {
	double := func(row types.Row) types.Row {
		return types.Row{1: intVal(row[1].Int * 2)}
	}
	m := NewMapOperator(0, double)
	out, err := m.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{1: intVal(5)}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(10), out[0].Post[1].Int)
}

func TestMapOperatorProjectsBothSidesOnUpdate(t *testing.T) {
	double := func(row types.Row) types.Row {
		return types.Row{1: intVal(row[1].Int * 2)}
	}
	m := NewMapOperator(0, double)
	out, err := m.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpUpdate, Pre: types.Row{1: intVal(3)}, Post: types.Row{1: intVal(5)}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, types.OpUpdate, out[0].Operation)
	assert.Equal(t, int64(6), out[0].Pre[1].Int)
	assert.Equal(t, int64(10), out[0].Post[1].Int)
}

func TestExtendOperatorAddsColumnsWithoutDroppingOriginal(t *testing.T) {
	addDoubled := func(row types.Row) types.Row {
		return types.Row{2: intVal(row[1].Int * 2)}
	}
	e := NewExtendOperator(0, addDoubled)
	out, err := e.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{1: intVal(5)}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(5), out[0].Post[1].Int)
	assert.Equal(t, int64(10), out[0].Post[2].Int)
}
