package flow

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowOperatorCountBasedAdmitsAndAggregates(t *testing.T) {
	m, _, _ := newTestManager(t)
	tx := m.BeginCommand(context.Background())
	defer tx.Rollback()

	specs := []AggregateSpec{{Output: 2, Func: AggCount}, {Output: 3, Func: AggSum, Input: 1}}
	clock := &fakeClock{now: 1000}
	w := NewWindowOperator(0, WindowCount, 0, 0, []types.ColumnID{0}, specs,
		NewState(tx, 1, 0), NewState(tx, 1, 1), clock, 0, 0)

	out, err := w.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{0: intVal(1), 1: intVal(5)}, Version: 1},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, types.OpInsert, out[0].Operation)
	assert.Equal(t, int64(1), out[0].Post[2].Int)
	assert.Equal(t, float64(5), out[0].Post[3].Float)
}

func TestWindowOperatorSecondEventSameWindowEmitsUpdate(t *testing.T) {
	m, _, _ := newTestManager(t)
	tx := m.BeginCommand(context.Background())
	defer tx.Rollback()

	specs := []AggregateSpec{{Output: 2, Func: AggCount}}
	clock := &fakeClock{now: 1000}
	w := NewWindowOperator(0, WindowCount, 0, 0, []types.ColumnID{0}, specs,
		NewState(tx, 1, 0), NewState(tx, 1, 1), clock, 0, 0)

	_, err := w.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{0: intVal(1)}, Version: 1},
	})
	require.NoError(t, err)

	out, err := w.Apply(context.Background(), ChangeSet{
		{RowNumber: 2, Operation: types.OpInsert, Post: types.Row{0: intVal(1)}, Version: 2},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, types.OpUpdate, out[0].Operation)
	assert.Equal(t, int64(2), out[0].Post[2].Int)
}

func TestWindowOperatorEvictsByAge(t *testing.T) {
	m, _, _ := newTestManager(t)
	tx := m.BeginCommand(context.Background())
	defer tx.Rollback()

	specs := []AggregateSpec{{Output: 2, Func: AggCount}}
	clock := &fakeClock{now: 1000}
	maxAge := int64(500)
	w := NewWindowOperator(0, WindowCount, 0, 0, []types.ColumnID{0}, specs,
		NewState(tx, 1, 0), NewState(tx, 1, 1), clock, maxAge, 0)

	_, err := w.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{0: intVal(1)}, Version: 1},
	})
	require.NoError(t, err)

	clock.now += 1000 // advance past maxAge
	out, err := w.Apply(context.Background(), ChangeSet{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, types.OpDelete, out[0].Operation)
}

func TestWindowOperatorEvictsByCount(t *testing.T) {
	m, _, _ := newTestManager(t)
	tx := m.BeginCommand(context.Background())
	defer tx.Rollback()

	specs := []AggregateSpec{{Output: 2, Func: AggCount}}
	clock := &fakeClock{now: 1000}
	w := NewWindowOperator(0, WindowCount, 0, 0, []types.ColumnID{0}, specs,
		NewState(tx, 1, 0), NewState(tx, 1, 1), clock, 0, 1)

	_, err := w.Apply(context.Background(), ChangeSet{
		{RowNumber: 1, Operation: types.OpInsert, Post: types.Row{0: intVal(1)}, Version: 1},
	})
	require.NoError(t, err)

	out, err := w.Apply(context.Background(), ChangeSet{
		{RowNumber: 2, Operation: types.OpInsert, Post: types.Row{0: intVal(2)}, Version: 2},
	})
	require.NoError(t, err)

	var deletes int
	for _, d := range out {
		if d.Operation == types.OpDelete {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes, "only one window slot allowed, the older one must be evicted")
}
