package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// bucketKV is the single bucket every physical row lives in. Unlike the
// teacher's pkg/storage/boltdb.go (one bucket per entity type), this
// store multiplexes every key kind into one bucket via the key package's
// kind byte, since the store itself is kind-agnostic — it just sees
// ordered bytes, the way spec section 4.1 specifies it.
var bucketKV = []byte("kv")

const (
	tagValue     byte = 0x00
	tagTombstone byte = 0x01
)

// boltStore is the embedded single-file backend, grounded on the
// teacher's pkg/storage/boltdb.go db.Update/db.View closure idiom. The
// physical bbolt key is the logical key with an 8-byte big-endian
// version suffix appended, so bbolt's own B+tree ordering does double
// duty as both the key ordering and the per-key version ordering.
type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a single-file store at path.
func NewBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, types.Wrap(types.CodeStorageFailure, err, "open bolt store at %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, types.Wrap(types.CodeStorageFailure, err, "create kv bucket")
	}
	return &boltStore{db: db}, nil
}

func versionSuffix(v types.Version) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeVersionSuffix(b []byte) types.Version {
	return types.Version(binary.BigEndian.Uint64(b))
}

func physicalKey(logical []byte, v types.Version) []byte {
	pk := make([]byte, 0, len(logical)+8)
	pk = append(pk, logical...)
	return append(pk, versionSuffix(v)...)
}

func logicalPart(pk []byte) []byte {
	return pk[:len(pk)-8]
}

// nextKey returns the logical seek position used to skip past every
// physical version-row of one logical key during a range scan: k
// followed by 0x01. k's rows are k plus a big-endian version whose first
// byte is 0x00 for every version below 2^56, so k+0x01 sorts after all
// of them.
func nextKey(k []byte) []byte {
	return append(append([]byte(nil), k...), 0x01)
}

// getAt finds the visible physical row for logical at version v using a
// cursor positioned within an open bolt transaction, returning the tagged
// value bytes (tag + payload) or nil if absent.
func getAt(c *bolt.Cursor, logical []byte, v types.Version) []byte {
	seek := physicalKey(logical, v+1)
	pk, pv := c.Seek(seek)
	if pk == nil {
		pk, pv = c.Last()
	} else {
		pk, pv = c.Prev()
	}
	if pk == nil || len(pk) != len(logical)+8 || !bytes.Equal(logicalPart(pk), logical) {
		return nil
	}
	if decodeVersionSuffix(pk[len(logical):]) > v {
		return nil
	}
	return pv
}

func (b *boltStore) Get(_ context.Context, k []byte, v types.Version) ([]byte, bool, error) {
	var value []byte
	var ok bool
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketKV).Cursor()
		pv := getAt(c, k, v)
		if pv == nil || pv[0] == tagTombstone {
			return nil
		}
		value = append([]byte(nil), pv[1:]...)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, types.Wrap(types.CodeStorageFailure, err, "get")
	}
	return value, ok, nil
}

func (b *boltStore) Contains(ctx context.Context, k []byte, v types.Version) (bool, error) {
	_, ok, err := b.Get(ctx, k, v)
	return ok, err
}

func (b *boltStore) scan(r key.Range, v types.Version) ([]Entry, error) {
	var entries []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketKV).Cursor()
		cur := append([]byte(nil), r.Start...)
		for {
			seek := physicalKey(cur, 0)
			pk, _ := c.Seek(seek)
			if pk == nil || len(pk) < 8 {
				return nil
			}
			lk := logicalPart(pk)
			if r.End != nil && bytes.Compare(lk, r.End) >= 0 {
				return nil
			}
			pv := getAt(c, lk, v)
			if pv != nil && pv[0] == tagValue {
				entries = append(entries, Entry{Key: append([]byte(nil), lk...), Value: append([]byte(nil), pv[1:]...)})
			}
			cur = nextKey(lk)
		}
	})
	if err != nil {
		return nil, types.Wrap(types.CodeStorageFailure, err, "scan")
	}
	return entries, nil
}

func (b *boltStore) Range(_ context.Context, r key.Range, v types.Version) (Iterator, error) {
	entries, err := b.scan(r, v)
	if err != nil {
		return nil, err
	}
	return newSliceIterator(entries), nil
}

func (b *boltStore) RangeRev(_ context.Context, r key.Range, v types.Version) (Iterator, error) {
	entries, err := b.scan(r, v)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return newSliceIterator(entries), nil
}

func (b *boltStore) Commit(_ context.Context, deltas []Delta, v types.Version, _ types.TxID) ([]types.CDCEvent, error) {
	events := make([]types.CDCEvent, 0, len(deltas))
	now := time.Now()

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		c := bucket.Cursor()

		for i, d := range deltas {
			exact := physicalKey(d.Key, v)
			if existing, _ := c.Seek(exact); existing != nil && bytes.Equal(existing, exact) {
				return types.NewError(types.CodeStorageFailure,
					"duplicate (key, version) in commit: key already has an entry at version %d", v)
			}

			pre := getAt(c, d.Key, v-1)
			var preVal []byte
			preOK := pre != nil && pre[0] == tagValue
			if preOK {
				preVal = append([]byte(nil), pre[1:]...)
			}

			op := types.OpInsert
			tag := tagValue
			payload := d.Value
			if d.IsTombstone {
				op = types.OpDelete
				tag = tagTombstone
				payload = nil
			} else if preOK {
				op = types.OpUpdate
			}

			stored := append([]byte{tag}, payload...)
			if err := bucket.Put(physicalKey(d.Key, v), stored); err != nil {
				return err
			}

			ev := types.CDCEvent{
				Version:   v,
				Sequence:  uint32(i + 1),
				Key:       append([]byte(nil), d.Key...),
				Operation: op,
				Timestamp: now,
			}
			if preOK {
				ev.Pre = preVal
			}
			if !d.IsTombstone {
				ev.Post = d.Value
			}
			events = append(events, ev)

			evBytes, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			evKey := key.CdcEventKey{Version: v, Sequence: ev.Sequence}.Encode()
			if err := bucket.Put(physicalKey(evKey, v), append([]byte{tagValue}, evBytes...)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if typed, ok := err.(*types.Error); ok {
			return nil, typed
		}
		return nil, types.Wrap(types.CodeStorageFailure, err, "commit")
	}
	return events, nil
}

// PruneRange implements Pruner by deleting every physical (logical key,
// version) row whose logical key falls in r, across all its versions.
func (b *boltStore) PruneRange(_ context.Context, r key.Range) (int, error) {
	n := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		c := bucket.Cursor()

		var toDelete [][]byte
		cur := append([]byte(nil), r.Start...)
		for {
			seek := physicalKey(cur, 0)
			pk, _ := c.Seek(seek)
			if pk == nil || len(pk) < 8 {
				break
			}
			lk := logicalPart(pk)
			if r.End != nil && bytes.Compare(lk, r.End) >= 0 {
				break
			}
			for pk, _ := c.Seek(physicalKey(lk, 0)); pk != nil && bytes.Equal(logicalPart(pk), lk); pk, _ = c.Next() {
				toDelete = append(toDelete, append([]byte(nil), pk...))
			}
			cur = nextKey(lk)
		}
		for _, pk := range toDelete {
			if err := bucket.Delete(pk); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, types.Wrap(types.CodeStorageFailure, err, "prune range")
	}
	return n, nil
}

func (b *boltStore) Close() error {
	if err := b.db.Close(); err != nil {
		return types.Wrap(types.CodeStorageFailure, err, "close bolt store")
	}
	return nil
}

var _ Store = (*boltStore)(nil)
var _ Pruner = (*boltStore)(nil)
