package key

import "github.com/reifydb/reifydb/pkg/types"

// RowSequenceKey addresses the live row-number counter for one source.
// Like every other key it lives in the multi-version store; pkg/store has
// no separate unversioned tier, so each bump of the counter is a new
// versioned entry.
type RowSequenceKey struct {
	Source types.SourceID
}

// Encode implements EncodableKey.
func (k RowSequenceKey) Encode() Encoded {
	buf := header(KindRowSequence)
	return putUint64(buf, uint64(k.Source))
}

// ColumnSequenceKey addresses the live auto-increment counter for one
// column of one source. Grounded on original_source's
// crates/core/src/key/column_sequence.rs.
type ColumnSequenceKey struct {
	Source types.SourceID
	Column types.ColumnID
}

// Encode implements EncodableKey.
func (k ColumnSequenceKey) Encode() Encoded {
	buf := header(KindColumnSequence)
	buf = putUint64(buf, uint64(k.Source))
	buf = putUint64(buf, uint64(k.Column))
	return buf
}

// SystemSequenceKey addresses a named system-wide sequence, such as the
// catalog's entity-id generator or the commit version counter.
type SystemSequenceKey struct {
	Name string
}

// Encode implements EncodableKey. The name is variable length so it is
// written last with no following fields, keeping the encoding
// unambiguous without a length prefix.
func (k SystemSequenceKey) Encode() Encoded {
	buf := header(KindSystemSequence)
	return append(buf, k.Name...)
}

// ConsumerCheckpointKey addresses a flow consumer's persisted checkpoint
// (last version fully processed), kept as a versioned row in the
// multi-version store like every other key.
type ConsumerCheckpointKey struct {
	Consumer types.ConsumerID
}

// Encode implements EncodableKey.
func (k ConsumerCheckpointKey) Encode() Encoded {
	buf := header(KindConsumerCheckpoint)
	return append(buf, k.Consumer...)
}
