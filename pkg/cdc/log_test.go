package cdc

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogGetReturnsEventsForVersion(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	_, err := s.Commit(ctx, []store.Delta{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}, 1, 0)
	require.NoError(t, err)
	_, err = s.Commit(ctx, []store.Delta{
		{Key: []byte("a"), Value: []byte("3")},
	}, 2, 0)
	require.NoError(t, err)

	log := NewLog(s)

	events, err := log.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.Version(1), events[0].Version)
	assert.Equal(t, uint32(1), events[0].Sequence)
	assert.Equal(t, []byte("a"), events[0].Key)
	assert.Equal(t, uint32(2), events[1].Sequence)
}

func TestLogRangeSpansVersions(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	for v := types.Version(1); v <= 3; v++ {
		_, err := s.Commit(ctx, []store.Delta{
			{Key: []byte("k"), Value: []byte("v")},
		}, v, 0)
		require.NoError(t, err)
	}

	log := NewLog(s)

	events, err := log.Range(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.Version(1), events[0].Version)
	assert.Equal(t, types.Version(2), events[1].Version)
}

func TestLogScanReturnsEntireLog(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	_, err := s.Commit(ctx, []store.Delta{{Key: []byte("a"), Value: []byte("1")}}, 1, 0)
	require.NoError(t, err)
	_, err = s.Commit(ctx, []store.Delta{{Key: []byte("b"), IsTombstone: true}}, 2, 0)
	require.NoError(t, err)

	log := NewLog(s)

	events, err := log.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.OpDelete, events[1].Operation)
}

func TestLogPruneRemovesEventsBeforeVersionOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	for v := types.Version(1); v <= 3; v++ {
		_, err := s.Commit(ctx, []store.Delta{{Key: []byte("k"), Value: []byte("v")}}, v, 0)
		require.NoError(t, err)
	}

	log := NewLog(s)

	n, err := log.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only version 1's event is strictly before 2")

	events, err := log.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.Version(2), events[0].Version)
	assert.Equal(t, types.Version(3), events[1].Version)
}

func TestLogPruneAgainstNonPrunerBackendIsNoop(t *testing.T) {
	n, err := NewLog(noopPrunerStore{}).Prune(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// noopPrunerStore is a minimal store.Store that does not implement
// store.Pruner, to exercise Log.Prune's fallback path.
type noopPrunerStore struct{ store.Store }
