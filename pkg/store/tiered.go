package store

import (
	"context"
	"sync"
	"time"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/rs/zerolog"
)

// MigrationPolicy decides whether a key belongs in the hot tier or should
// be migrated to the warm tier, based on the version at which it was last
// written and the current version.
type MigrationPolicy interface {
	ShouldMigrate(lastWriteVersion, current types.Version) bool
}

// AgeThreshold migrates any key whose last write is more than N versions
// behind the current version.
type AgeThreshold struct {
	Versions uint64
}

func (a AgeThreshold) ShouldMigrate(lastWriteVersion, current types.Version) bool {
	return uint64(current)-uint64(lastWriteVersion) > a.Versions
}

// tieredStore composes a hot backend (typically memstore) and a warm
// backend (typically boltstore), writing every commit to hot and
// periodically sweeping aged entries into warm — grounded on the
// teacher's pkg/reconciler.go ticker-driven background pass, generalized
// from "reconcile desired vs actual state" to "migrate aged keys between
// tiers".
type tieredStore struct {
	hot, warm Store
	policy    MigrationPolicy
	logger    zerolog.Logger

	mu       sync.Mutex
	lastSeen map[string]types.Version

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTieredStore composes hot and warm behind one Store, sweeping aged
// keys from hot into warm every interval according to policy.
func NewTieredStore(hot, warm Store, policy MigrationPolicy, interval time.Duration, logger zerolog.Logger) Store {
	t := &tieredStore{
		hot:      hot,
		warm:     warm,
		policy:   policy,
		logger:   logger.With().Str("component", "tiered_store").Logger(),
		lastSeen: make(map[string]types.Version),
		stopCh:   make(chan struct{}),
	}
	t.wg.Add(1)
	go t.run(interval)
	return t
}

func (t *tieredStore) run(interval time.Duration) {
	defer t.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stopCh:
			return
		}
	}
}

// sweep copies every hot key whose last write is old enough into warm,
// committing its value directly against warm's Commit at the current
// version (not through the transaction manager), and then stops tracking
// the key. The key is not removed from hot: its hot entry stays in place
// and keeps shadowing warm on reads.
func (t *tieredStore) sweep() {
	t.mu.Lock()
	current := t.currentVersionLocked()
	candidates := make([]string, 0)
	for k, lastWrite := range t.lastSeen {
		if t.policy.ShouldMigrate(lastWrite, current) {
			candidates = append(candidates, k)
		}
	}
	t.mu.Unlock()

	if len(candidates) == 0 {
		return
	}

	ctx := context.Background()
	migrated := 0
	for _, k := range candidates {
		val, ok, err := t.hot.Get(ctx, []byte(k), current)
		if err != nil || !ok {
			continue
		}
		if _, err := t.warm.Commit(ctx, []Delta{{Key: []byte(k), Value: val}}, current, 0); err != nil {
			t.logger.Warn().Err(err).Str("key", k).Msg("failed to migrate key to warm tier")
			continue
		}
		t.mu.Lock()
		delete(t.lastSeen, k)
		t.mu.Unlock()
		migrated++
	}
	if migrated > 0 {
		t.logger.Debug().Int("migrated", migrated).Msg("swept keys into warm tier")
	}
}

func (t *tieredStore) currentVersionLocked() types.Version {
	var max types.Version
	for _, v := range t.lastSeen {
		if v > max {
			max = v
		}
	}
	return max
}

// Stop halts the background sweep goroutine.
func (t *tieredStore) Stop() {
	close(t.stopCh)
	t.wg.Wait()
}

func (t *tieredStore) Get(ctx context.Context, k []byte, v types.Version) ([]byte, bool, error) {
	if val, ok, err := t.hot.Get(ctx, k, v); err != nil {
		return nil, false, err
	} else if ok {
		return val, true, nil
	}
	return t.warm.Get(ctx, k, v)
}

func (t *tieredStore) Contains(ctx context.Context, k []byte, v types.Version) (bool, error) {
	_, ok, err := t.Get(ctx, k, v)
	return ok, err
}

func (t *tieredStore) Range(ctx context.Context, r key.Range, v types.Version) (Iterator, error) {
	return t.merge(ctx, r, v, false)
}

func (t *tieredStore) RangeRev(ctx context.Context, r key.Range, v types.Version) (Iterator, error) {
	return t.merge(ctx, r, v, true)
}

// merge collects entries from both tiers, letting the hot tier's value
// win on key collision since hot is always at least as fresh as warm.
func (t *tieredStore) merge(ctx context.Context, r key.Range, v types.Version, reverse bool) (Iterator, error) {
	hotIt, err := t.hot.Range(ctx, r, v)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var entries []Entry
	for hotIt.Next() {
		e := hotIt.Entry()
		seen[string(e.Key)] = true
		entries = append(entries, e)
	}
	_ = hotIt.Close()

	warmIt, err := t.warm.Range(ctx, r, v)
	if err != nil {
		return nil, err
	}
	for warmIt.Next() {
		e := warmIt.Entry()
		if !seen[string(e.Key)] {
			entries = append(entries, e)
		}
	}
	_ = warmIt.Close()

	sortEntries(entries)
	if reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return newSliceIterator(entries), nil
}

func (t *tieredStore) Commit(ctx context.Context, deltas []Delta, v types.Version, tx types.TxID) ([]types.CDCEvent, error) {
	events, err := t.hot.Commit(ctx, deltas, v, tx)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	for _, d := range deltas {
		t.lastSeen[string(d.Key)] = v
	}
	t.mu.Unlock()
	return events, nil
}

func (t *tieredStore) Close() error {
	t.Stop()
	if err := t.hot.Close(); err != nil {
		return err
	}
	return t.warm.Close()
}

var _ Store = (*tieredStore)(nil)
