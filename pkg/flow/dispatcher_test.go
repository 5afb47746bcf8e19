package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/cdc"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *txn.Manager, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	cat := catalog.New(s, zerolog.Nop())
	m, err := txn.NewManager(context.Background(), s, cat, txn.Optimistic, zerolog.Nop())
	require.NoError(t, err)
	log := cdc.NewLog(s)
	d := NewDispatcher(m, log, 1, time.Hour, zerolog.Nop())
	return d, m, s
}

func commitRow(t *testing.T, m *txn.Manager, k, v []byte) {
	t.Helper()
	tx := m.BeginCommand(context.Background())
	require.NoError(t, tx.Set(k, v))
	_, err := tx.Commit()
	require.NoError(t, err)
}

func TestDispatcherAdvanceDeliversCommittedEventsAndMovesCheckpoint(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	commitRow(t, m, []byte("row-1"), []byte("v1"))

	var received []types.CDCEvent
	var mu sync.Mutex
	id, err := d.RegisterFlow(1, func(tx *txn.Tx, events []types.CDCEvent) error {
		mu.Lock()
		received = append(received, events...)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	hwmBefore := m.CurrentVersion()
	d.mu.RLock()
	c := d.consumers[id]
	d.mu.RUnlock()
	require.NoError(t, d.advance(c))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)

	state, checkpoint, err := d.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Active, state)
	assert.Equal(t, hwmBefore, checkpoint)
}

func TestDispatcherBackfillingTransitionsToActiveOnceCaughtUp(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	commitRow(t, m, []byte("row-1"), []byte("v1"))
	commitRow(t, m, []byte("row-2"), []byte("v2"))

	id, err := d.RegisterFlow(1, func(tx *txn.Tx, events []types.CDCEvent) error { return nil })
	require.NoError(t, err)

	state, _, err := d.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Backfilling, state)

	d.mu.RLock()
	c := d.consumers[id]
	d.mu.RUnlock()
	require.NoError(t, d.advance(c))

	state, _, err = d.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Active, state)
}

func TestDispatcherRetriesBatchAfterProcessFailureAtLeastOnce(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	commitRow(t, m, []byte("row-1"), []byte("v1"))

	var attempts int
	var delivered [][]types.CDCEvent
	id, err := d.RegisterFlow(1, func(tx *txn.Tx, events []types.CDCEvent) error {
		attempts++
		delivered = append(delivered, events)
		if attempts == 1 {
			return errors.New("simulated failure")
		}
		return nil
	})
	require.NoError(t, err)

	d.mu.RLock()
	c := d.consumers[id]
	d.mu.RUnlock()

	err = d.advance(c)
	require.Error(t, err)
	_, checkpoint, statusErr := d.Status(id)
	require.NoError(t, statusErr)
	assert.Equal(t, types.Version(0), checkpoint, "checkpoint must not advance past a failed commit")

	require.NoError(t, d.advance(c))
	require.Equal(t, 2, attempts)
	assert.Equal(t, delivered[0], delivered[1], "the same batch is redelivered until it commits")
}

func TestDispatcherDeregisterFlowRemovesConsumer(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	id, err := d.RegisterFlow(1, func(tx *txn.Tx, events []types.CDCEvent) error { return nil })
	require.NoError(t, err)

	require.NoError(t, d.DeregisterFlow(id, time.Second))

	_, _, err = d.Status(id)
	require.Error(t, err)
}

func TestDispatcherPartitionsConsumersAcrossWorkers(t *testing.T) {
	s := store.NewMemStore()
	cat := catalog.New(s, zerolog.Nop())
	m, err := txn.NewManager(context.Background(), s, cat, txn.Optimistic, zerolog.Nop())
	require.NoError(t, err)
	log := cdc.NewLog(s)
	d := NewDispatcher(m, log, 4, time.Hour, zerolog.Nop())

	for flowID := types.FlowID(1); flowID <= 20; flowID++ {
		_, err := d.RegisterFlow(flowID, func(tx *txn.Tx, events []types.CDCEvent) error { return nil })
		require.NoError(t, err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for worker, ids := range d.partitions {
		for _, id := range ids {
			c := d.consumers[id]
			assert.Equal(t, worker, partitionOf(c.flow, 4))
		}
	}
}

func TestConsumerCheckpointPersistsIndependentlyOfDispatcher(t *testing.T) {
	s := store.NewMemStore()
	cat := catalog.New(s, zerolog.Nop())
	m1, err := txn.NewManager(context.Background(), s, cat, txn.Optimistic, zerolog.Nop())
	require.NoError(t, err)
	log := cdc.NewLog(s)
	d := NewDispatcher(m1, log, 1, time.Hour, zerolog.Nop())

	commitRow(t, m1, []byte("row-1"), []byte("v1"))
	id, err := d.RegisterFlow(1, func(tx *txn.Tx, events []types.CDCEvent) error { return nil })
	require.NoError(t, err)

	d.mu.RLock()
	c := d.consumers[id]
	d.mu.RUnlock()
	require.NoError(t, d.advance(c))

	_, checkpoint, err := d.Status(id)
	require.NoError(t, err)

	// A fresh manager over the same store sees the persisted
	// checkpoint regardless of the dispatcher instance that wrote it.
	cat2 := catalog.New(s, zerolog.Nop())
	m2, err := txn.NewManager(context.Background(), s, cat2, txn.Optimistic, zerolog.Nop())
	require.NoError(t, err)
	verify := m2.BeginQuery(context.Background())
	raw, ok, err := verify.Get(key.ConsumerCheckpointKey{Consumer: id}.Encode())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, encodeCheckpoint(checkpoint), raw)
}
