package key

import (
	"testing"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowKeyEncodeDecode(t *testing.T) {
	k := RowKey{Source: 0xABCD, Row: 0x123456789ABCDEF0}
	encoded := k.Encode()

	expected := Encoded{
		FormatVersion, byte(KindRow),
		0, 0, 0, 0, 0, 0, 0xAB, 0xCD,
		0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0,
	}
	assert.Equal(t, expected, encoded)

	decoded, ok := DecodeRowKey(encoded[2:])
	require.True(t, ok)
	assert.Equal(t, k, decoded)
}

func TestRowKeyOrderPreserving(t *testing.T) {
	k1 := RowKey{Source: 1, Row: 100}
	k2 := RowKey{Source: 1, Row: 200}
	k3 := RowKey{Source: 2, Row: 0}

	e1, e2, e3 := k1.Encode(), k2.Encode(), k3.Encode()

	assert.True(t, e1.Less(e2), "row number ordering not preserved")
	assert.True(t, e2.Less(e3), "source id ordering not preserved")
}

func TestCdcEventKeyOrderPreserving(t *testing.T) {
	keys := []CdcEventKey{
		{Version: 1, Sequence: 1},
		{Version: 1, Sequence: 2},
		{Version: 2, Sequence: 1},
	}
	for i := 1; i < len(keys); i++ {
		assert.True(t, keys[i-1].Encode().Less(keys[i].Encode()))
	}
}

func TestCdcRangeBounds(t *testing.T) {
	r := CdcRange(types.Version(5), types.Version(10))
	within := CdcEventKey{Version: 7, Sequence: 3}.Encode()
	before := CdcEventKey{Version: 4, Sequence: 1}.Encode()
	after := CdcEventKey{Version: 10, Sequence: 1}.Encode()

	assert.True(t, !within.Less(r.Start) && within.Less(r.End))
	assert.True(t, before.Less(r.Start))
	assert.True(t, !after.Less(r.End))
}

func TestPrefixRangeExcludesOtherKinds(t *testing.T) {
	r := TablePrefix()
	table := CatalogKey{Kind: KindTable, ID: 1}.Encode()
	view := CatalogKey{Kind: KindView, ID: 1}.Encode()

	assert.True(t, !table.Less(r.Start) && table.Less(r.End))
	assert.True(t, view.Less(r.Start) || !view.Less(r.End))
}

func TestCatalogKeyDecode(t *testing.T) {
	encoded := NamespaceKey(types.NamespaceID(42))
	decoded, ok := DecodeCatalogKey(encoded.Kind(), encoded[2:])
	require.True(t, ok)
	assert.Equal(t, uint64(42), decoded.ID)
}

func TestFlowStateKeyDisjointByOperator(t *testing.T) {
	a := FlowStatePrefix(1, 0)
	b := FlowStatePrefix(1, 1)
	assert.NotEqual(t, a, b)

	keyInA := FlowStateKey{Flow: 1, Operator: 0, UserKey: []byte("g1")}.Encode()
	keyInB := FlowStateKey{Flow: 1, Operator: 1, UserKey: []byte("g1")}.Encode()
	assert.True(t, !keyInA.Less(a.Start) && keyInA.Less(a.End))
	assert.False(t, !keyInB.Less(a.Start) && keyInB.Less(a.End))
}
