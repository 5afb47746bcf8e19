// Package row implements the core's row encoding: for a fixed schema of
// types.Type fields (a Layout), it lays out a definedness bitmap followed
// by inline fixed-width fields and an inline (offset, length) slot per
// variable-width field, with the variable-width bytes themselves trailing
// the fixed region — per spec section 4.7.
//
// Grounded on original_source's crates/catalog/src/sequence/u64.rs usage
// of Layout (Layout::new(&[Type::Uint8]), layout.get_u64/set_u64): the Go
// Layout below keeps that get/set-by-index shape, generalized to every
// types.Type instead of one hard-coded Uint8 sequence layout.
package row

import (
	"encoding/binary"
	"math"

	"github.com/reifydb/reifydb/pkg/types"
)

// Layout describes the physical shape of a row over a fixed ordered list
// of field types: a definedness bitmap, then one inline slot per field
// (the field's own bytes for fixed-width types, an offset+length pair for
// variable-width types), then a trailing region holding the actual bytes
// of every variable-width field in field order.
type Layout struct {
	fields     []types.Type
	offsets    []int // inline offset of field i, after the bitmap
	bitmapSize int
	fixedSize  int // bitmap + all inline slots; variable data starts here
}

// NewLayout computes the offsets for a fixed list of field types.
func NewLayout(fields []types.Type) *Layout {
	bitmapSize := (len(fields) + 7) / 8
	offsets := make([]int, len(fields))
	pos := bitmapSize
	for i, t := range fields {
		offsets[i] = pos
		pos += t.Width()
	}
	return &Layout{fields: fields, offsets: offsets, bitmapSize: bitmapSize, fixedSize: pos}
}

// Fields returns the layout's field types, in order.
func (l *Layout) Fields() []types.Type { return l.fields }

// AllocateRow returns a new, all-undefined row of exactly the size needed
// to hold only the fixed region (no variable-width data yet).
func (l *Layout) AllocateRow() []byte {
	return make([]byte, l.fixedSize)
}

func (l *Layout) bitSet(row []byte, i int) bool {
	return row[i/8]&(1<<uint(i%8)) != 0
}

func (l *Layout) setBit(row []byte, i int) {
	row[i/8] |= 1 << uint(i%8)
}

func (l *Layout) clearBit(row []byte, i int) {
	row[i/8] &^= 1 << uint(i%8)
}

// IsDefined reports whether field i has a value in row.
func (l *Layout) IsDefined(row []byte, i int) bool {
	return l.bitSet(row, i)
}

// SetUndefined marks field i as having no value.
func (l *Layout) SetUndefined(row []byte, i int) {
	l.clearBit(row, i)
}

// GetBool reads field i as a bool. Caller must check IsDefined first.
func (l *Layout) GetBool(row []byte, i int) bool {
	return row[l.offsets[i]] != 0
}

// SetBool writes field i as a bool and marks it defined.
func (l *Layout) SetBool(row []byte, i int, v bool) {
	if v {
		row[l.offsets[i]] = 1
	} else {
		row[l.offsets[i]] = 0
	}
	l.setBit(row, i)
}

// GetInt64 reads field i, sign-extending from its declared width.
func (l *Layout) GetInt64(row []byte, i int) int64 {
	u := l.GetUint64(row, i)
	switch l.fields[i].Width() {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	case 4:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

// SetInt64 writes field i from a signed value, truncating to its
// declared width, and marks it defined.
func (l *Layout) SetInt64(row []byte, i int, v int64) {
	l.SetUint64(row, i, uint64(v))
}

// GetUint64 reads field i as an unsigned integer of its declared width.
func (l *Layout) GetUint64(row []byte, i int) uint64 {
	off := l.offsets[i]
	switch l.fields[i].Width() {
	case 1:
		return uint64(row[off])
	case 2:
		return uint64(binary.BigEndian.Uint16(row[off : off+2]))
	case 4:
		return uint64(binary.BigEndian.Uint32(row[off : off+4]))
	default:
		return binary.BigEndian.Uint64(row[off : off+8])
	}
}

// SetUint64 writes field i, truncating to its declared width, and marks
// it defined.
func (l *Layout) SetUint64(row []byte, i int, v uint64) {
	off := l.offsets[i]
	switch l.fields[i].Width() {
	case 1:
		row[off] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(row[off:off+2], uint16(v))
	case 4:
		binary.BigEndian.PutUint32(row[off:off+4], uint32(v))
	default:
		binary.BigEndian.PutUint64(row[off:off+8], v)
	}
	l.setBit(row, i)
}

// GetFloat64 reads field i as a float of its declared width.
func (l *Layout) GetFloat64(row []byte, i int) float64 {
	off := l.offsets[i]
	if l.fields[i].Width() == 4 {
		return float64(math.Float32frombits(binary.BigEndian.Uint32(row[off : off+4])))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(row[off : off+8]))
}

// SetFloat64 writes field i, marking it defined.
func (l *Layout) SetFloat64(row []byte, i int, v float64) {
	off := l.offsets[i]
	if l.fields[i].Width() == 4 {
		binary.BigEndian.PutUint32(row[off:off+4], math.Float32bits(float32(v)))
	} else {
		binary.BigEndian.PutUint64(row[off:off+8], math.Float64bits(v))
	}
	l.setBit(row, i)
}

// GetBytes reads a variable-width field (Utf8 or Blob) out of its
// out-of-line region using the inline (offset, length) slot at field i.
func (l *Layout) GetBytes(row []byte, i int) []byte {
	off := l.offsets[i]
	dataOffset := binary.BigEndian.Uint32(row[off : off+4])
	dataLength := binary.BigEndian.Uint32(row[off+4 : off+8])
	return row[dataOffset : dataOffset+dataLength]
}

// SetBytes appends v to row's trailing variable-width region and writes
// the inline (offset, length) slot for field i, marking it defined. It
// returns the (possibly reallocated) row; callers must use the returned
// slice.
func (l *Layout) SetBytes(row []byte, i int, v []byte) []byte {
	dataOffset := uint32(len(row))
	row = append(row, v...)
	off := l.offsets[i]
	binary.BigEndian.PutUint32(row[off:off+4], dataOffset)
	binary.BigEndian.PutUint32(row[off+4:off+8], uint32(len(v)))
	l.setBit(row, i)
	return row
}

// Encode builds a complete row from a types.Row keyed by column index
// (0..len(fields)-1, matching Layout's field order).
func (l *Layout) Encode(values map[int]types.Value) []byte {
	row := l.AllocateRow()
	// Reserve the variable-width inline slots before appending any
	// trailing data, since SetBytes appends at the row's current end.
	for i, v := range values {
		if v.IsNull {
			continue
		}
		switch l.fields[i] {
		case types.Bool:
			l.SetBool(row, i, v.Bool)
		case types.Int1, types.Int2, types.Int4, types.Int8, types.Int16:
			l.SetInt64(row, i, v.Int)
		case types.Uint1, types.Uint2, types.Uint4, types.Uint8, types.Uint16:
			l.SetUint64(row, i, v.Uint)
		case types.Float4, types.Float8:
			l.SetFloat64(row, i, v.Float)
		case types.Utf8, types.Blob:
			row = l.SetBytes(row, i, v.Bytes)
		}
	}
	return row
}

// Decode reads every field of row back into a types.Value slice indexed
// by field position.
func (l *Layout) Decode(row []byte) []types.Value {
	out := make([]types.Value, len(l.fields))
	for i, t := range l.fields {
		if !l.IsDefined(row, i) {
			out[i] = types.Value{Type: t, IsNull: true}
			continue
		}
		switch t {
		case types.Bool:
			out[i] = types.Value{Type: t, Bool: l.GetBool(row, i)}
		case types.Int1, types.Int2, types.Int4, types.Int8, types.Int16:
			out[i] = types.Value{Type: t, Int: l.GetInt64(row, i)}
		case types.Uint1, types.Uint2, types.Uint4, types.Uint8, types.Uint16:
			out[i] = types.Value{Type: t, Uint: l.GetUint64(row, i)}
		case types.Float4, types.Float8:
			out[i] = types.Value{Type: t, Float: l.GetFloat64(row, i)}
		case types.Utf8, types.Blob:
			out[i] = types.Value{Type: t, Bytes: l.GetBytes(row, i)}
		}
	}
	return out
}
