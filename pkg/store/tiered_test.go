package store

import (
	"context"
	"testing"
	"time"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTieredStoreReadsFallThroughToWarm(t *testing.T) {
	ctx := context.Background()
	hot := NewMemStore()
	warm := NewMemStore()

	_, err := warm.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("from-warm")}}, 1, 0)
	require.NoError(t, err)

	ts := NewTieredStore(hot, warm, AgeThreshold{Versions: 100}, time.Hour, zerolog.Nop())
	defer ts.Close()

	val, ok, err := ts.Get(ctx, []byte("a"), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("from-warm"), val)
}

func TestTieredStoreHotShadowsWarm(t *testing.T) {
	ctx := context.Background()
	hot := NewMemStore()
	warm := NewMemStore()

	_, err := warm.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("old")}}, 1, 0)
	require.NoError(t, err)

	ts := NewTieredStore(hot, warm, AgeThreshold{Versions: 100}, time.Hour, zerolog.Nop())
	defer ts.Close()

	_, err = ts.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("new")}}, 2, 0)
	require.NoError(t, err)

	val, ok, err := ts.Get(ctx, []byte("a"), 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), val)
}

func TestTieredStoreRangeMergesTiers(t *testing.T) {
	ctx := context.Background()
	hot := NewMemStore()
	warm := NewMemStore()

	_, err := warm.Commit(ctx, []Delta{{Key: []byte("a"), Value: []byte("1")}}, 1, 0)
	require.NoError(t, err)

	ts := NewTieredStore(hot, warm, AgeThreshold{Versions: 100}, time.Hour, zerolog.Nop())
	defer ts.Close()

	_, err = ts.Commit(ctx, []Delta{{Key: []byte("b"), Value: []byte("1")}}, 2, 0)
	require.NoError(t, err)

	it, err := ts.Range(ctx, key.Range{Start: []byte("a"), End: []byte("z")}, 2)
	require.NoError(t, err)
	var got []string
	for it.Next() {
		got = append(got, string(it.Entry().Key))
	}
	assert.Equal(t, []string{"a", "b"}, got)
}
