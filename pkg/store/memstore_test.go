package store

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreBasicMVCCRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("v1")}}, 1, 0)
	require.NoError(t, err)
	_, err = s.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("v2")}}, 2, 0)
	require.NoError(t, err)

	v1, ok, err := s.Get(ctx, []byte("a"), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v1)

	v2, ok, err := s.Get(ctx, []byte("a"), 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), v2)

	_, ok, err = s.Get(ctx, []byte("a"), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemStoreTombstoneHidesValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("v1")}}, 1, 0)
	require.NoError(t, err)
	_, err = s.Commit(ctx, []Delta{{Key: []byte("a"), IsTombstone: true}}, 2, 0)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, []byte("a"), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(ctx, []byte("a"), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemStoreRangeSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.Commit(ctx, []Delta{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("1")},
	}, 1, 0)
	require.NoError(t, err)

	it, err := s.Range(ctx, key.Range{Start: []byte("a"), End: []byte("z")}, 1)
	require.NoError(t, err)

	_, err = s.Commit(ctx, []Delta{{Key: []byte("c"), Value: []byte("1")}}, 2, 0)
	require.NoError(t, err)

	var got []string
	for it.Next() {
		got = append(got, string(it.Entry().Key))
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMemStoreDuplicateVersionRejected(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("v1")}}, 1, 0)
	require.NoError(t, err)

	_, err = s.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("v1-again")}}, 1, 0)
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err) || !types.IsRetryable(err))
}

func TestMemStoreCommitProducesCDCEvents(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	events, err := s.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("v1")}}, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.OpInsert, events[0].Operation)
	assert.Equal(t, types.Version(1), events[0].Version)

	events, err = s.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("v2")}}, 2, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.OpUpdate, events[0].Operation)
	assert.Equal(t, []byte("v1"), events[0].Pre)
	assert.Equal(t, []byte("v2"), events[0].Post)

	events, err = s.Commit(ctx, []Delta{{Key: []byte("a"), IsTombstone: true}}, 3, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.OpDelete, events[0].Operation)
}

func TestMemStoreRangeRevReversesOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_, err := s.Commit(ctx, []Delta{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("1")},
		{Key: []byte("c"), Value: []byte("1")},
	}, 1, 0)
	require.NoError(t, err)

	it, err := s.RangeRev(ctx, key.Range{Start: []byte("a"), End: []byte("z")}, 1)
	require.NoError(t, err)

	var got []string
	for it.Next() {
		got = append(got, string(it.Entry().Key))
	}
	assert.Equal(t, []string{"c", "b", "a"}, got)
}

func TestMemStorePruneRangeDeletesKeysInRangeOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_, err := s.Commit(ctx, []Delta{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("1")},
		{Key: []byte("z"), Value: []byte("1")},
	}, 1, 0)
	require.NoError(t, err)

	pruner, ok := s.(Pruner)
	require.True(t, ok)

	n, err := pruner.PruneRange(ctx, key.Range{Start: []byte("a"), End: []byte("c")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err = s.Get(ctx, []byte("a"), 1)
	require.NoError(t, err)
	assert.False(t, ok, "pruned key must be gone entirely, not just tombstoned")

	_, ok, err = s.Get(ctx, []byte("z"), 1)
	require.NoError(t, err)
	assert.True(t, ok, "key outside the pruned range must survive")
}
