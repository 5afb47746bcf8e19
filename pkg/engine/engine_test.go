package engine

import (
	"context"
	"testing"
	"time"

	"github.com/reifydb/reifydb/pkg/config"
	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.GCInterval = time.Hour
	cfg.FlowInterval = time.Hour
	return cfg
}

func TestNewAssemblesAndCommitsAreVisible(t *testing.T) {
	e, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close()

	tx := e.BeginCommand(context.Background())
	require.NoError(t, tx.Set([]byte("k"), []byte("v")))
	_, err = tx.Commit()
	require.NoError(t, err)

	q := e.BeginQuery(context.Background())
	val, ok, err := q.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestRegisterFlowStartsBackfillingAndDeregisters(t *testing.T) {
	e, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close()

	tx := e.BeginCommand(context.Background())
	require.NoError(t, tx.Set([]byte("row-1"), []byte("v1")))
	_, err = tx.Commit()
	require.NoError(t, err)

	var gotEvents int
	id, err := e.RegisterFlow(1, func(_ *txn.Tx, events []types.CDCEvent) error {
		gotEvents += len(events)
		return nil
	})
	require.NoError(t, err)

	state, _, err := e.FlowStatus(id)
	require.NoError(t, err)
	assert.Equal(t, flow.Backfilling, state)

	require.NoError(t, e.DeregisterFlow(id, time.Second))
	_, _, err = e.FlowStatus(id)
	assert.Error(t, err, "status after deregistration must fail")
}

func TestSweepPrunesOnlyBelowMinCheckpoint(t *testing.T) {
	e, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 3; i++ {
		tx := e.BeginCommand(context.Background())
		require.NoError(t, tx.Set([]byte("row"), []byte("v")))
		_, err = tx.Commit()
		require.NoError(t, err)
	}

	before, err := e.cdcLog.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, before, 3)

	id, err := e.RegisterFlow(1, func(_ *txn.Tx, _ []types.CDCEvent) error { return nil })
	require.NoError(t, err)
	d, _, err := e.FlowStatus(id)
	require.NoError(t, err)
	assert.Equal(t, flow.Backfilling, d)

	// No checkpoint has advanced yet (dispatcher ticks at an hour
	// interval in this test), so sweeping now must prune nothing.
	e.sweep()
	after, err := e.cdcLog.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, after, 3, "nothing acknowledged yet, nothing prunable")
}

func TestSweepWithNoConsumersPrunesNothing(t *testing.T) {
	e, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close()

	tx := e.BeginCommand(context.Background())
	require.NoError(t, tx.Set([]byte("row"), []byte("v")))
	_, err = tx.Commit()
	require.NoError(t, err)

	e.sweep()

	events, err := e.cdcLog.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestNewWithTieredBackendCommitsAreVisible(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = config.BackendTiered
	cfg.BoltPath = t.TempDir() + "/warm.db"
	cfg.TieredSweepInterval = time.Hour

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	tx := e.BeginCommand(context.Background())
	require.NoError(t, tx.Set([]byte("k"), []byte("v")))
	_, err = tx.Commit()
	require.NoError(t, err)

	q := e.BeginQuery(context.Background())
	val, ok, err := q.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestSubscribeCDCReceivesCommitWakeup(t *testing.T) {
	e, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer e.Close()

	sub := e.SubscribeCDC(types.ConsumerID("test-consumer"))
	defer e.UnsubscribeCDC(types.ConsumerID("test-consumer"))

	tx := e.BeginCommand(context.Background())
	require.NoError(t, tx.Set([]byte("k"), []byte("v")))
	_, err = tx.Commit()
	require.NoError(t, err)

	select {
	case events := <-sub:
		require.Len(t, events, 1)
		assert.Equal(t, types.OpInsert, events[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("expected a wakeup after commit")
	}
}
