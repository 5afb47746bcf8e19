package row

import (
	"testing"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSequenceLayoutRoundTrip(t *testing.T) {
	l := NewLayout([]types.Type{types.Uint8})
	r := l.AllocateRow()
	l.SetUint64(r, 0, 41)
	assert.True(t, l.IsDefined(r, 0))
	assert.Equal(t, uint64(41), l.GetUint64(r, 0))

	l.SetUint64(r, 0, l.GetUint64(r, 0)+1)
	assert.Equal(t, uint64(42), l.GetUint64(r, 0))
}

func TestMixedLayoutRoundTrip(t *testing.T) {
	l := NewLayout([]types.Type{types.Bool, types.Int4, types.Float8, types.Utf8})
	values := map[int]types.Value{
		0: {Type: types.Bool, Bool: true},
		1: {Type: types.Int4, Int: -42},
		2: {Type: types.Float8, Float: 3.5},
		3: {Type: types.Utf8, Bytes: []byte("hello")},
	}
	encoded := l.Encode(values)
	decoded := l.Decode(encoded)

	assert.Equal(t, true, decoded[0].Bool)
	assert.Equal(t, int64(-42), decoded[1].Int)
	assert.Equal(t, 3.5, decoded[2].Float)
	assert.Equal(t, []byte("hello"), decoded[3].Bytes)
}

func TestUndefinedFieldRoundTrip(t *testing.T) {
	l := NewLayout([]types.Type{types.Int4, types.Utf8})
	encoded := l.Encode(map[int]types.Value{0: {Type: types.Int4, Int: 7}})
	decoded := l.Decode(encoded)

	assert.False(t, decoded[1].IsNull == false && len(decoded[1].Bytes) > 0)
	assert.True(t, decoded[1].IsNull)
	assert.Equal(t, int64(7), decoded[0].Int)
}

func TestBitmapSizing(t *testing.T) {
	l := NewLayout(make([]types.Type, 9))
	assert.Equal(t, 2, l.bitmapSize)
}
