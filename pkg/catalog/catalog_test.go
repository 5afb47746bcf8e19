package catalog

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNamespaceAndLoad(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	cat := New(s, zerolog.Nop())

	ns, deltas, err := CreateNamespace(ctx, s, 1, "analytics")
	require.NoError(t, err)
	events, err := s.Commit(ctx, deltas, 1, 0)
	require.NoError(t, err)
	for _, ev := range events {
		cat.Apply(ev)
	}

	got, ok := cat.Namespace(ns.ID, 1)
	require.True(t, ok)
	assert.Equal(t, "analytics", got.Name)
}

func TestLoadRebuildsMirrorFromStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	ns, deltas, err := CreateNamespace(ctx, s, 1, "analytics")
	require.NoError(t, err)
	_, err = s.Commit(ctx, deltas, 1, 0)
	require.NoError(t, err)

	fresh := New(s, zerolog.Nop())
	require.NoError(t, fresh.Load(ctx, 1))

	got, ok := fresh.Namespace(ns.ID, 1)
	require.True(t, ok)
	assert.Equal(t, "analytics", got.Name)
}

func TestSequenceNextIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	seqKey := key.SystemSequenceKey{Name: "test_seq"}
	var v types.Version = 1
	n1, d1, err := Next(ctx, s, seqKey, v)
	require.NoError(t, err)
	_, err = s.Commit(ctx, []store.Delta{d1}, v, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n1)

	v = 2
	n2, d2, err := Next(ctx, s, seqKey, v)
	require.NoError(t, err)
	_, err = s.Commit(ctx, []store.Delta{d2}, v, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n2)
}

func TestNamespaceDeleteHidesEntity(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	cat := New(s, zerolog.Nop())

	ns, deltas, err := CreateNamespace(ctx, s, 1, "analytics")
	require.NoError(t, err)
	events, err := s.Commit(ctx, deltas, 1, 0)
	require.NoError(t, err)
	for _, ev := range events {
		cat.Apply(ev)
	}

	dropDelta := store.Delta{Key: deltas[1].Key, IsTombstone: true}
	events, err = s.Commit(ctx, []store.Delta{dropDelta}, 2, 0)
	require.NoError(t, err)
	for _, ev := range events {
		cat.Apply(ev)
	}

	_, ok := cat.Namespace(ns.ID, 2)
	assert.False(t, ok)

	_, ok = cat.Namespace(ns.ID, 1)
	assert.True(t, ok)
}
