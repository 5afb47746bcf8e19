package store

import (
	"bytes"
	"sort"
)

// sortEntries orders entries ascending by key, used wherever two sources
// of entries (e.g. tiered's hot and warm tiers) are merged and must be
// re-sorted before being handed to a sliceIterator.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
}

// sliceIterator is the shared Iterator implementation for every backend:
// each backend computes its matching entries eagerly into a slice at
// Range/RangeRev construction time, which trivially satisfies the
// snapshot requirement (nothing about a sliceIterator can change once
// built, regardless of what commits happen afterward).
type sliceIterator struct {
	entries []Entry
	pos     int
}

func newSliceIterator(entries []Entry) *sliceIterator {
	return &sliceIterator{entries: entries, pos: -1}
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.entries)
}

func (it *sliceIterator) Entry() Entry {
	return it.entries[it.pos]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }
