package key

import "github.com/reifydb/reifydb/pkg/types"

// CdcEventKey addresses one CDC log entry: kind CdcEvent, then big-endian
// (version, sequence) so range scans over a version interval yield
// events in commit order, and within one version, in sequence order.
// Grounded on Irregularshooter-amc's change-set table convention
// (key = blockNum_u64 + ...) generalized from a single block number to
// the (version, sequence) pair spec section 4.4 requires.
type CdcEventKey struct {
	Version  types.Version
	Sequence uint32
}

// Encode implements EncodableKey.
func (k CdcEventKey) Encode() Encoded {
	buf := header(KindCdcEvent)
	buf = putUint64(buf, uint64(k.Version))
	buf = putUint32(buf, k.Sequence)
	return buf
}

// DecodeCdcEventKey decodes a CdcEvent key's payload.
func DecodeCdcEventKey(payload []byte) (CdcEventKey, bool) {
	if len(payload) != 12 {
		return CdcEventKey{}, false
	}
	return CdcEventKey{
		Version:  types.Version(getUint64(payload[:8])),
		Sequence: getUint32(payload[8:]),
	}, true
}

// versionPrefix returns the prefix shared by every CDC event of one
// version.
func versionPrefix(v types.Version) []byte {
	buf := header(KindCdcEvent)
	return putUint64(buf, uint64(v))
}

// CdcRangeForVersion returns the Range matching every event committed at
// exactly version v.
func CdcRangeForVersion(v types.Version) Range {
	return PrefixRange(versionPrefix(v))
}

// CdcRange returns the Range matching every event with version in
// [lo, hi) — the CDC log's range(v_lo..v_hi) operation.
func CdcRange(lo, hi types.Version) Range {
	return Range{
		Start: CdcEventKey{Version: lo, Sequence: 0}.Encode(),
		End:   CdcEventKey{Version: hi, Sequence: 0}.Encode(),
	}
}

// CdcScanAll returns the Range matching the entire CDC log.
func CdcScanAll() Range {
	return PrefixRange(header(KindCdcEvent))
}
