package key

import "github.com/reifydb/reifydb/pkg/types"

// RowKey addresses a single row within a table, ring buffer, or view:
// kind Row, then big-endian (source id, row number) so that a range scan
// over one source's rows yields them in row-number order, per spec
// section 3 ("(source_id, row_number) scans yield rows in row-number
// order"). Grounded directly on original_source's TableRowKey.
type RowKey struct {
	Source types.SourceID
	Row    types.RowNumber
}

// Encode implements EncodableKey.
func (k RowKey) Encode() Encoded {
	buf := header(KindRow)
	buf = putUint64(buf, uint64(k.Source))
	buf = putUint64(buf, uint64(k.Row))
	return buf
}

// DecodeRowKey decodes a Row key's payload.
func DecodeRowKey(payload []byte) (RowKey, bool) {
	if len(payload) != 16 {
		return RowKey{}, false
	}
	return RowKey{
		Source: types.SourceID(getUint64(payload[:8])),
		Row:    types.RowNumber(getUint64(payload[8:])),
	}, true
}

// sourcePrefix returns the prefix shared by every row of source under the
// given kind (Row for tables/views, RingBuffer rows use the same Row kind
// keyed by their own source id).
func sourcePrefix(source types.SourceID) []byte {
	buf := header(KindRow)
	return putUint64(buf, uint64(source))
}

// RowRangeForSource returns the Range matching every row of one source,
// in ascending row-number order — the "full table scan" range.
func RowRangeForSource(source types.SourceID) Range {
	return PrefixRange(sourcePrefix(source))
}
