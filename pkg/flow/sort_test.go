package flow

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortOperatorOrdersAscendingByDefault(t *testing.T) {
	s := NewSortOperator(0, []SortKey{{Column: 1}})
	out, err := s.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{1: intVal(3)}},
		{RowNumber: 2, Operation: types.OpInsert, Post: types.Row{1: intVal(1)}},
		{RowNumber: 3, Operation: types.OpInsert, Post: types.Row{1: intVal(2)}},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0].Post[1].Int)
	assert.Equal(t, int64(2), out[1].Post[1].Int)
	assert.Equal(t, int64(3), out[2].Post[1].Int)
}

func TestSortOperatorDescending(t *testing.T) {
	s := NewSortOperator(0, []SortKey{{Column: 1, Descending: true}})
	out, err := s.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{1: intVal(3)}},
		{RowNumber: 2, Operation: types.OpInsert, Post: types.Row{1: intVal(1)}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(3), out[0].Post[1].Int)
	assert.Equal(t, int64(1), out[1].Post[1].Int)
}

func TestSortOperatorDoesNotMutateInput(t *testing.T) {
	s := NewSortOperator(0, []SortKey{{Column: 1}})
	input := ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{1: intVal(2)}},
		{RowNumber: 2, Operation: types.OpInsert, Post: types.Row{1: intVal(1)}},
	}
	_, err := s.Apply(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(2), input[0].Post[1].Int)
}
