package key

import "github.com/reifydb/reifydb/pkg/types"

// CatalogKey addresses a single catalog row (namespace, table, view,
// ring buffer, column, primary key, sequence, or flow definition) by its
// id. All of these entities share one shape: kind byte + big-endian id.
type CatalogKey struct {
	Kind Kind
	ID   uint64
}

// Encode implements the shared namespace/table/view/column/primary-key/
// sequence/flow key layout: version, kind, big-endian id.
func (k CatalogKey) Encode() Encoded {
	buf := header(k.Kind)
	buf = putUint64(buf, k.ID)
	return buf
}

// DecodeCatalogKey decodes the payload of a CatalogKey-shaped key. The
// kind has already been read by the caller via Encoded.Kind().
func DecodeCatalogKey(kind Kind, payload []byte) (CatalogKey, bool) {
	if len(payload) != 8 {
		return CatalogKey{}, false
	}
	return CatalogKey{Kind: kind, ID: getUint64(payload)}, true
}

// NamespaceKey addresses a Namespace catalog row.
func NamespaceKey(id types.NamespaceID) Encoded {
	return CatalogKey{Kind: KindNamespace, ID: uint64(id)}.Encode()
}

// TableKey addresses a Table catalog row.
func TableKey(id types.SourceID) Encoded {
	return CatalogKey{Kind: KindTable, ID: uint64(id)}.Encode()
}

// ViewKey addresses a View catalog row.
func ViewKey(id types.SourceID) Encoded {
	return CatalogKey{Kind: KindView, ID: uint64(id)}.Encode()
}

// RingBufferKey addresses a RingBuffer catalog row.
func RingBufferKey(id types.SourceID) Encoded {
	return CatalogKey{Kind: KindRingBuffer, ID: uint64(id)}.Encode()
}

// ColumnKey addresses a Column catalog row.
func ColumnKey(id types.ColumnID) Encoded {
	return CatalogKey{Kind: KindColumn, ID: uint64(id)}.Encode()
}

// PrimaryKeyKey addresses a PrimaryKey catalog row.
func PrimaryKeyKey(id uint64) Encoded {
	return CatalogKey{Kind: KindPrimaryKey, ID: id}.Encode()
}

// SequenceDefKey addresses a Sequence catalog row (the definition, not
// the live counter — see RowSequenceKey/ColumnSequenceKey for those).
func SequenceDefKey(id types.SequenceID) Encoded {
	return CatalogKey{Kind: KindSequenceDef, ID: uint64(id)}.Encode()
}

// SequenceDefPrefix returns the range matching every Sequence definition
// row.
func SequenceDefPrefix() Range { return PrefixRange(header(KindSequenceDef)) }

// FlowKey addresses a Flow catalog row (its DAG definition and sink).
func FlowKey(id types.FlowID) Encoded {
	return CatalogKey{Kind: KindFlow, ID: uint64(id)}.Encode()
}

// NamespacePrefix returns the range matching every Namespace row — used
// by catalog startup scan to rebuild the materialized namespace index.
func NamespacePrefix() Range { return PrefixRange(header(KindNamespace)) }

// TablePrefix returns the range matching every Table row.
func TablePrefix() Range { return PrefixRange(header(KindTable)) }

// ViewPrefix returns the range matching every View row.
func ViewPrefix() Range { return PrefixRange(header(KindView)) }

// RingBufferPrefix returns the range matching every RingBuffer row.
func RingBufferPrefix() Range { return PrefixRange(header(KindRingBuffer)) }

// ColumnPrefix returns the range matching every Column row.
func ColumnPrefix() Range { return PrefixRange(header(KindColumn)) }

// PrimaryKeyPrefix returns the range matching every PrimaryKey row.
func PrimaryKeyPrefix() Range { return PrefixRange(header(KindPrimaryKey)) }

// FlowPrefix returns the range matching every Flow row.
func FlowPrefix() Range { return PrefixRange(header(KindFlow)) }
