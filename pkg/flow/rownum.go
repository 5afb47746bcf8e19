package flow

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/reifydb/reifydb/pkg/types"
)

// rowNumberForKey derives a stable sink row number from a group/window
// key so that repeated deliveries of diffs belonging to the same group
// always address the same sink row — required for spec section 4.6's
// "idempotence of flow re-delivery" (sink writes at the same version are
// idempotent via upsert-at-version) when an operator synthesizes a row
// that has no natural row number of its own (Aggregate and Window
// outputs represent a group, not a single source row).
func rowNumberForKey(key []byte) types.RowNumber {
	h := fnv.New64a()
	_, _ = h.Write(key)
	return types.RowNumber(h.Sum64())
}

// joinedRowNumber derives a stable sink row identity for a Cartesian
// match between a left row and a right row, from the pair of their
// original row numbers rather than from whichever side's diff triggered
// the emission — the same fix Aggregate/Window apply via
// rowNumberForKey, generalized to a two-sided key so that a left row
// matching N right rows addresses N distinct sink rows instead of
// collapsing onto one.
func joinedRowNumber(left, right types.RowNumber) types.RowNumber {
	buf := make([]byte, 17)
	buf[0] = 0x01
	binary.BigEndian.PutUint64(buf[1:9], uint64(left))
	binary.BigEndian.PutUint64(buf[9:17], uint64(right))
	return rowNumberForKey(buf)
}

// nullPaddedRowNumber derives the sink row identity for an outer join's
// null-padded row, keyed only by the unmatched side's own row number (a
// distinct tag byte from joinedRowNumber keeps a null-padded row's
// identity from ever colliding with a matched pair's).
func nullPaddedRowNumber(own types.RowNumber) types.RowNumber {
	buf := make([]byte, 9)
	buf[0] = 0x00
	binary.BigEndian.PutUint64(buf[1:9], uint64(own))
	return rowNumberForKey(buf)
}
