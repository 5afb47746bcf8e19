package txn

import (
	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/types"
)

// Catalog mutation helpers below are only valid on Admin transactions.
// Each allocates whatever ids it needs from the shared entity sequence
// (safe without further locking since BeginAdmin already serializes every
// Admin transaction end-to-end) and stages the resulting Deltas into the
// transaction's write buffer; nothing is visible to other transactions,
// nor reflected in the materialized catalog, until Commit succeeds and
// routes the commit's CDC events through Catalog.Apply.

var errNotAdmin = types.NewError(types.CodeStorageFailure, "catalog mutation requires an admin transaction")

// ColumnSpec describes one column to create alongside a new table, view,
// or ring buffer — the catalog only needs enough to allocate an id and
// persist a Column row per spec.
type ColumnSpec struct {
	Name          string
	Type          types.Type
	Constraint    types.ColumnConstraint
	Policies      []types.ColumnPolicy
	AutoIncrement bool
}

// CreateNamespace allocates a namespace id and stages its catalog row.
func (tx *Tx) CreateNamespace(name string) (types.Namespace, error) {
	if tx.kind != Admin {
		return types.Namespace{}, errNotAdmin
	}
	ns, deltas, err := catalog.CreateNamespace(tx.ctx, tx.manager.store, tx.readVersion+1, name)
	if err != nil {
		return types.Namespace{}, err
	}
	for _, d := range deltas {
		tx.StageDelta(d)
	}
	return ns, nil
}

// createColumns allocates an id and stages a row for each spec, attached
// to source. Returns the allocated ids in spec order.
func (tx *Tx) createColumns(source types.SourceID, specs []ColumnSpec) ([]types.ColumnID, error) {
	ids := make([]types.ColumnID, 0, len(specs))
	for i, spec := range specs {
		id, idDelta, err := catalog.AllocateID(tx.ctx, tx.manager.store, tx.readVersion+1)
		if err != nil {
			return nil, err
		}
		tx.StageDelta(idDelta)

		col := types.Column{
			ID:            types.ColumnID(id),
			Source:        source,
			Index:         i,
			Name:          spec.Name,
			Type:          spec.Type,
			Constraint:    spec.Constraint,
			Policies:      spec.Policies,
			AutoIncrement: spec.AutoIncrement,
		}
		delta, err := catalog.CreateColumn(col)
		if err != nil {
			return nil, err
		}
		tx.StageDelta(delta)
		ids = append(ids, col.ID)
	}
	return ids, nil
}

// CreateTable allocates a table id and a column id per spec, stages every
// resulting row, and returns the created Table.
func (tx *Tx) CreateTable(namespaceID types.NamespaceID, name string, columns []ColumnSpec) (types.Table, error) {
	if tx.kind != Admin {
		return types.Table{}, errNotAdmin
	}
	id, idDelta, err := catalog.AllocateID(tx.ctx, tx.manager.store, tx.readVersion+1)
	if err != nil {
		return types.Table{}, err
	}
	tx.StageDelta(idDelta)

	source := types.SourceID(id)
	colIDs, err := tx.createColumns(source, columns)
	if err != nil {
		return types.Table{}, err
	}

	table, delta, err := catalog.CreateTable(namespaceID, name, colIDs, source)
	if err != nil {
		return types.Table{}, err
	}
	tx.StageDelta(delta)
	return table, nil
}

// CreateView allocates a view id and a column id per spec, stages every
// resulting row, and returns the created View. The view's rows are
// expected to be maintained by a Flow rather than written directly.
func (tx *Tx) CreateView(namespaceID types.NamespaceID, name string, columns []ColumnSpec) (types.View, error) {
	if tx.kind != Admin {
		return types.View{}, errNotAdmin
	}
	id, idDelta, err := catalog.AllocateID(tx.ctx, tx.manager.store, tx.readVersion+1)
	if err != nil {
		return types.View{}, err
	}
	tx.StageDelta(idDelta)

	source := types.SourceID(id)
	colIDs, err := tx.createColumns(source, columns)
	if err != nil {
		return types.View{}, err
	}

	view := types.View{ID: source, NamespaceID: namespaceID, Name: name, Columns: colIDs}
	delta, err := catalog.CreateView(view)
	if err != nil {
		return types.View{}, err
	}
	tx.StageDelta(delta)
	return view, nil
}

// CreateRingBuffer allocates a ring buffer id and a column id per spec,
// stages every resulting row, and returns the created RingBuffer.
func (tx *Tx) CreateRingBuffer(namespaceID types.NamespaceID, name string, capacity uint64, columns []ColumnSpec) (types.RingBuffer, error) {
	if tx.kind != Admin {
		return types.RingBuffer{}, errNotAdmin
	}
	id, idDelta, err := catalog.AllocateID(tx.ctx, tx.manager.store, tx.readVersion+1)
	if err != nil {
		return types.RingBuffer{}, err
	}
	tx.StageDelta(idDelta)

	source := types.SourceID(id)
	colIDs, err := tx.createColumns(source, columns)
	if err != nil {
		return types.RingBuffer{}, err
	}

	rb := types.RingBuffer{ID: source, NamespaceID: namespaceID, Name: name, Columns: colIDs, Capacity: capacity}
	delta, err := catalog.CreateRingBuffer(rb)
	if err != nil {
		return types.RingBuffer{}, err
	}
	tx.StageDelta(delta)
	return rb, nil
}

// CreatePrimaryKey allocates a primary key id naming columns over source
// and stages its row.
func (tx *Tx) CreatePrimaryKey(source types.SourceID, columns []types.ColumnID) (types.PrimaryKey, error) {
	if tx.kind != Admin {
		return types.PrimaryKey{}, errNotAdmin
	}
	id, idDelta, err := catalog.AllocateID(tx.ctx, tx.manager.store, tx.readVersion+1)
	if err != nil {
		return types.PrimaryKey{}, err
	}
	tx.StageDelta(idDelta)

	pk := types.PrimaryKey{ID: id, Source: source, Columns: columns}
	delta, err := catalog.CreatePrimaryKey(pk)
	if err != nil {
		return types.PrimaryKey{}, err
	}
	tx.StageDelta(delta)
	return pk, nil
}

// CreateFlow allocates a flow id and stages its catalog entry, pointing
// at sinkView. The flow's operator graph itself is constructed
// separately at runtime by pkg/flow, not persisted here.
func (tx *Tx) CreateFlow(namespaceID types.NamespaceID, name string, sinkView types.SourceID) (types.FlowDef, error) {
	if tx.kind != Admin {
		return types.FlowDef{}, errNotAdmin
	}
	id, idDelta, err := catalog.AllocateID(tx.ctx, tx.manager.store, tx.readVersion+1)
	if err != nil {
		return types.FlowDef{}, err
	}
	tx.StageDelta(idDelta)

	f := types.FlowDef{ID: types.FlowID(id), NamespaceID: namespaceID, Name: name, SinkView: sinkView}
	delta, err := catalog.CreateFlow(f)
	if err != nil {
		return types.FlowDef{}, err
	}
	tx.StageDelta(delta)
	return f, nil
}

// DropTable stages the tombstone that removes a table's catalog row. The
// caller is responsible for also dropping its columns and primary key in
// the same transaction if the full definition should disappear together.
func (tx *Tx) DropTable(id types.SourceID) error {
	if tx.kind != Admin {
		return errNotAdmin
	}
	tx.StageDelta(catalog.DropTable(id))
	return nil
}

// DropView stages the tombstone that removes a view's catalog row.
func (tx *Tx) DropView(id types.SourceID) error {
	if tx.kind != Admin {
		return errNotAdmin
	}
	tx.StageDelta(catalog.DropView(id))
	return nil
}

// DropColumn stages the tombstone that removes a column's catalog row.
func (tx *Tx) DropColumn(id types.ColumnID) error {
	if tx.kind != Admin {
		return errNotAdmin
	}
	tx.StageDelta(catalog.DropColumn(id))
	return nil
}

// DropFlow stages the tombstone that removes a flow's catalog row.
func (tx *Tx) DropFlow(id types.FlowID) error {
	if tx.kind != Admin {
		return errNotAdmin
	}
	tx.StageDelta(catalog.DropFlow(id))
	return nil
}
