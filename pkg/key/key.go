// Package key implements the core's key encoding: a small set of
// per-entity encoders that turn typed identifiers (namespace id, table
// row, CDC event, sequence, flow state, ...) into the single ordered byte
// sequence the multi-version store operates on.
//
// Every encoded key begins with a 1-byte format version and a 1-byte
// kind, per spec section 4.7. Numeric payload fields are big-endian so
// that byte-lexicographic order matches numeric order — the property
// pkg/store's range scans depend on. The layout is grounded directly on
// original_source's crates/core/src/key/table_row.rs and
// column_sequence.rs (version byte, kind byte, big-endian payload,
// start/end prefix-bound helpers), translated into Go's append idiom in
// place of the Rust KeySerializer builder type.
package key

import "bytes"

// FormatVersion is the key encoding format version. It is bumped only on
// incompatible changes to the byte layout below.
const FormatVersion byte = 0x01

// Kind is the second byte of every encoded key, selecting which decoder
// applies to the payload. Values are illustrative, matching spec.md
// section 6's reserved-key-kinds table; the set is what's normative.
type Kind byte

const (
	KindNamespace          Kind = 0x01
	KindTable              Kind = 0x02
	KindView               Kind = 0x03
	KindColumn             Kind = 0x04
	KindPrimaryKey         Kind = 0x05
	KindRowSequence        Kind = 0x06
	KindColumnSequence     Kind = 0x07
	KindSequenceDef        Kind = 0x08
	KindRow                Kind = 0x10
	KindRingBuffer         Kind = 0x11
	KindRingBufferMetadata Kind = 0x12
	KindFlow               Kind = 0x20
	KindFlowState          Kind = 0x21
	KindCdcEvent           Kind = 0x30
	KindSystemSequence     Kind = 0xF0
	KindConsumerCheckpoint Kind = 0xF1
)

// Encoded is an encoded key: an opaque, totally ordered byte sequence.
// Two keys compare equal iff their bytes are equal; ordering is unsigned
// lexicographic byte comparison, which Go's native []byte/string
// ordering already implements, so Encoded is just a named byte slice.
type Encoded []byte

// Compare returns -1, 0, or 1 as e sorts before, equal to, or after o.
func (e Encoded) Compare(o Encoded) int {
	return bytes.Compare(e, o)
}

// Less reports whether e sorts strictly before o.
func (e Encoded) Less(o Encoded) bool {
	return bytes.Compare(e, o) < 0
}

// Kind reads the kind byte out of an encoded key. Callers must have
// already validated len(e) >= 2.
func (e Encoded) Kind() Kind {
	return Kind(e[1])
}

// Range is a half-open key interval [Start, End). A nil Start means
// "unbounded below"; a nil End means "unbounded above".
type Range struct {
	Start Encoded
	End   Encoded
}

// prefixUpperBound returns the exclusive upper bound of every key sharing
// prefix p: the smallest key that is strictly greater than every key
// beginning with p. It increments the last non-0xFF byte and truncates
// trailing 0xFF bytes, so a prefix of all-0xFF bytes has no upper bound
// (returns nil, meaning unbounded above).
func prefixUpperBound(p []byte) Encoded {
	out := append(Encoded(nil), p...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

// PrefixRange returns the Range matching every encoded key with prefix p.
func PrefixRange(p []byte) Range {
	return Range{Start: append(Encoded(nil), p...), End: prefixUpperBound(p)}
}

// header returns the 2-byte [FormatVersion, kind] prefix shared by every
// encoded key.
func header(k Kind) []byte {
	return []byte{FormatVersion, byte(k)}
}

// putUint64 appends the big-endian bytes of v to buf.
func putUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// putUint32 appends the big-endian bytes of v to buf.
func putUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func getUint64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
