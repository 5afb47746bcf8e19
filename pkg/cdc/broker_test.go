package cdc

import (
	"testing"
	"time"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishDeliversToSubscriber(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	sub := b.Subscribe("consumer-1")

	batch := []types.CDCEvent{{Version: 1, Sequence: 1, Key: []byte("k")}}
	b.Publish(batch)

	select {
	case got := <-sub:
		assert.Equal(t, batch, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive batch")
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	sub := b.Subscribe("consumer-1")
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe("consumer-1")
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok)
}

func TestBrokerDropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	b.Subscribe("slow-consumer")

	batch := []types.CDCEvent{{Version: 1, Sequence: 1}}
	for i := 0; i < batchBufferSize+10; i++ {
		b.Publish(batch)
	}

	assert.Equal(t, 1, b.SubscriberCount())
}

func TestBrokerIgnoresEmptyBatch(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	sub := b.Subscribe("consumer-1")

	b.Publish(nil)

	select {
	case <-sub:
		t.Fatal("empty batch should not be delivered")
	case <-time.After(50 * time.Millisecond):
	}
}
