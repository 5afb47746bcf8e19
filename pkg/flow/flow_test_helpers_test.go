package flow

import (
	"context"
	"testing"
	"time"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestManager builds a transaction manager over a fresh in-memory
// store, returning the store and catalog alongside it since
// pkg/txn.Manager keeps both unexported.
func newTestManager(t *testing.T) (*txn.Manager, store.Store, *catalog.Catalog) {
	t.Helper()
	s := store.NewMemStore()
	cat := catalog.New(s, zerolog.Nop())
	m, err := txn.NewManager(context.Background(), s, cat, txn.Optimistic, zerolog.Nop())
	require.NoError(t, err)
	return m, s, cat
}

// intVal builds a types.Value holding a signed integer.
func intVal(n int64) types.Value {
	return types.Value{Type: types.Int8, Int: n}
}

// strVal builds a types.Value holding a Utf8 string.
func strVal(s string) types.Value {
	return types.Value{Type: types.Utf8, Bytes: []byte(s)}
}

// fakeClock is a types.Clock test double advanced manually.
type fakeClock struct{ now int64 } // unix nanos

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.now)
}
