package catalog

import (
	"context"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
)

// Mutation builders below only compute the store.Delta a catalog change
// requires; they do not commit anything themselves. The transaction
// manager folds these deltas into a command's write set, commits them
// through the multi-version store, and then calls Catalog.Apply on each
// resulting CDC event to update the materialized mirror — so the
// persisted row and the in-memory index always move together, one
// commit at a time.

// CreateNamespace allocates a namespace id and builds the two Deltas
// that persist it: the bumped entity-id sequence counter and the
// namespace row itself. Both must be folded into the same commit, or
// the id allocation is lost and NextEntityID hands out the same id
// again on the next call.
func CreateNamespace(ctx context.Context, s store.Store, v types.Version, name string) (types.Namespace, []store.Delta, error) {
	id, idDelta, err := NextEntityID(ctx, s, v)
	if err != nil {
		return types.Namespace{}, nil, err
	}
	ns := types.Namespace{ID: types.NamespaceID(id), Name: name}
	data, err := EncodeRow(ns)
	if err != nil {
		return types.Namespace{}, nil, types.Wrap(types.CodeStorageFailure, err, "encode namespace")
	}
	return ns, []store.Delta{idDelta, {Key: key.NamespaceKey(ns.ID), Value: data}}, nil
}

// CreateTable allocates a table id and builds the Delta that persists
// it, given its namespace and an already-allocated column id list.
func CreateTable(namespaceID types.NamespaceID, name string, columns []types.ColumnID, id types.SourceID) (types.Table, store.Delta, error) {
	t := types.Table{ID: id, NamespaceID: namespaceID, Name: name, Columns: columns}
	data, err := EncodeRow(t)
	if err != nil {
		return types.Table{}, store.Delta{}, types.Wrap(types.CodeStorageFailure, err, "encode table")
	}
	return t, store.Delta{Key: key.TableKey(id), Value: data}, nil
}

// CreateColumn builds the Delta that persists a column definition
// already assigned to a source.
func CreateColumn(col types.Column) (store.Delta, error) {
	data, err := EncodeRow(col)
	if err != nil {
		return store.Delta{}, types.Wrap(types.CodeStorageFailure, err, "encode column")
	}
	return store.Delta{Key: key.ColumnKey(col.ID), Value: data}, nil
}

// CreatePrimaryKey builds the Delta that persists a primary key
// definition.
func CreatePrimaryKey(pk types.PrimaryKey) (store.Delta, error) {
	data, err := EncodeRow(pk)
	if err != nil {
		return store.Delta{}, types.Wrap(types.CodeStorageFailure, err, "encode primary key")
	}
	return store.Delta{Key: key.PrimaryKeyKey(pk.ID), Value: data}, nil
}

// CreateView builds the Delta that persists a view definition.
func CreateView(view types.View) (store.Delta, error) {
	data, err := EncodeRow(view)
	if err != nil {
		return store.Delta{}, types.Wrap(types.CodeStorageFailure, err, "encode view")
	}
	return store.Delta{Key: key.ViewKey(view.ID), Value: data}, nil
}

// CreateRingBuffer builds the Delta that persists a ring buffer
// definition.
func CreateRingBuffer(rb types.RingBuffer) (store.Delta, error) {
	data, err := EncodeRow(rb)
	if err != nil {
		return store.Delta{}, types.Wrap(types.CodeStorageFailure, err, "encode ring buffer")
	}
	return store.Delta{Key: key.RingBufferKey(rb.ID), Value: data}, nil
}

// CreateFlow builds the Delta that persists a flow's catalog entry.
func CreateFlow(f types.FlowDef) (store.Delta, error) {
	data, err := EncodeRow(f)
	if err != nil {
		return store.Delta{}, types.Wrap(types.CodeStorageFailure, err, "encode flow")
	}
	return store.Delta{Key: key.FlowKey(f.ID), Value: data}, nil
}

// DropTable builds the tombstone Delta that removes a table's catalog
// row. The table's rows and any columns/primary key referencing it are
// the caller's responsibility to drop in the same commit.
func DropTable(id types.SourceID) store.Delta {
	return store.Delta{Key: key.TableKey(id), IsTombstone: true}
}

// DropView builds the tombstone Delta that removes a view's catalog row.
func DropView(id types.SourceID) store.Delta {
	return store.Delta{Key: key.ViewKey(id), IsTombstone: true}
}

// DropColumn builds the tombstone Delta that removes a column's catalog
// row.
func DropColumn(id types.ColumnID) store.Delta {
	return store.Delta{Key: key.ColumnKey(id), IsTombstone: true}
}

// DropFlow builds the tombstone Delta that removes a flow's catalog row.
func DropFlow(id types.FlowID) store.Delta {
	return store.Delta{Key: key.FlowKey(id), IsTombstone: true}
}
