package catalog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/rs/zerolog"
)

// Catalog is the core's catalog: persisted rows in the multi-version
// store plus a materialized, version-indexed in-memory mirror kept in
// sync on every commit. Reads go through the mirror (At); writes append
// a persisted row and then update the mirror once the owning
// transaction's commit has been accepted by the store.
type Catalog struct {
	store  store.Store
	logger zerolog.Logger

	namespaces   *entityIndex[types.Namespace]
	tables       *entityIndex[types.Table]
	views        *entityIndex[types.View]
	ringBuffers  *entityIndex[types.RingBuffer]
	columns      *entityIndex[types.Column]
	primaryKeys  *entityIndex[types.PrimaryKey]
	sequenceDefs *entityIndex[types.Sequence]
	flows        *entityIndex[types.FlowDef]
}

// New constructs an empty Catalog bound to s. Call Load to populate the
// materialized mirror from whatever has already been persisted.
func New(s store.Store, logger zerolog.Logger) *Catalog {
	return &Catalog{
		store:        s,
		logger:       logger.With().Str("component", "catalog").Logger(),
		namespaces:   newEntityIndex[types.Namespace](),
		tables:       newEntityIndex[types.Table](),
		views:        newEntityIndex[types.View](),
		ringBuffers:  newEntityIndex[types.RingBuffer](),
		columns:      newEntityIndex[types.Column](),
		primaryKeys:  newEntityIndex[types.PrimaryKey](),
		sequenceDefs: newEntityIndex[types.Sequence](),
		flows:        newEntityIndex[types.FlowDef](),
	}
}

// Load rebuilds the materialized mirror by scanning every catalog row
// kind at the given version — the startup population spec section 4.2
// requires before the engine accepts its first transaction.
func (c *Catalog) Load(ctx context.Context, v types.Version) error {
	loaders := []struct {
		name  string
		r     key.Range
		apply func([]byte, types.Version) error
	}{
		{"namespace", key.NamespacePrefix(), c.applyNamespace},
		{"table", key.TablePrefix(), c.applyTable},
		{"view", key.ViewPrefix(), c.applyView},
		{"ring_buffer", key.RingBufferPrefix(), c.applyRingBuffer},
		{"column", key.ColumnPrefix(), c.applyColumn},
		{"primary_key", key.PrimaryKeyPrefix(), c.applyPrimaryKey},
		{"sequence_def", key.SequenceDefPrefix(), c.applySequenceDef},
		{"flow", key.FlowPrefix(), c.applyFlow},
	}
	for _, l := range loaders {
		it, err := c.store.Range(ctx, l.r, v)
		if err != nil {
			return types.Wrap(types.CodeCatalogInconsistency, err, "scan %s rows", l.name)
		}
		for it.Next() {
			e := it.Entry()
			if err := l.apply(e.Value, v); err != nil {
				_ = it.Close()
				return err
			}
		}
		if err := it.Close(); err != nil {
			return types.Wrap(types.CodeCatalogInconsistency, err, "close %s scan", l.name)
		}
	}
	c.logger.Info().Msg("catalog loaded from store")
	return nil
}

func (c *Catalog) applyNamespace(data []byte, v types.Version) error {
	var n types.Namespace
	if err := json.Unmarshal(data, &n); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode namespace row")
	}
	c.namespaces.Put(uint64(n.ID), v, n)
	return nil
}

func (c *Catalog) applyTable(data []byte, v types.Version) error {
	var t types.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode table row")
	}
	c.tables.Put(uint64(t.ID), v, t)
	return nil
}

func (c *Catalog) applyView(data []byte, v types.Version) error {
	var view types.View
	if err := json.Unmarshal(data, &view); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode view row")
	}
	c.views.Put(uint64(view.ID), v, view)
	return nil
}

func (c *Catalog) applyRingBuffer(data []byte, v types.Version) error {
	var rb types.RingBuffer
	if err := json.Unmarshal(data, &rb); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode ring buffer row")
	}
	c.ringBuffers.Put(uint64(rb.ID), v, rb)
	return nil
}

func (c *Catalog) applyColumn(data []byte, v types.Version) error {
	var col types.Column
	if err := json.Unmarshal(data, &col); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode column row")
	}
	c.columns.Put(uint64(col.ID), v, col)
	return nil
}

func (c *Catalog) applyPrimaryKey(data []byte, v types.Version) error {
	var pk types.PrimaryKey
	if err := json.Unmarshal(data, &pk); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode primary key row")
	}
	c.primaryKeys.Put(pk.ID, v, pk)
	return nil
}

func (c *Catalog) applySequenceDef(data []byte, v types.Version) error {
	var s types.Sequence
	if err := json.Unmarshal(data, &s); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode sequence row")
	}
	c.sequenceDefs.Put(uint64(s.ID), v, s)
	return nil
}

func (c *Catalog) applyFlow(data []byte, v types.Version) error {
	var f types.FlowDef
	if err := json.Unmarshal(data, &f); err != nil {
		return types.Wrap(types.CodeCatalogInconsistency, err, "decode flow row")
	}
	c.flows.Put(uint64(f.ID), v, f)
	return nil
}

// Namespace returns the namespace visible at v, if any.
func (c *Catalog) Namespace(id types.NamespaceID, v types.Version) (types.Namespace, bool) {
	return c.namespaces.At(uint64(id), v)
}

// Table returns the table visible at v, if any.
func (c *Catalog) Table(id types.SourceID, v types.Version) (types.Table, bool) {
	return c.tables.At(uint64(id), v)
}

// View returns the view visible at v, if any.
func (c *Catalog) View(id types.SourceID, v types.Version) (types.View, bool) {
	return c.views.At(uint64(id), v)
}

// RingBuffer returns the ring buffer visible at v, if any.
func (c *Catalog) RingBuffer(id types.SourceID, v types.Version) (types.RingBuffer, bool) {
	return c.ringBuffers.At(uint64(id), v)
}

// Column returns the column visible at v, if any.
func (c *Catalog) Column(id types.ColumnID, v types.Version) (types.Column, bool) {
	return c.columns.At(uint64(id), v)
}

// PrimaryKeyOf returns the primary key visible at v, if any.
func (c *Catalog) PrimaryKeyOf(id uint64, v types.Version) (types.PrimaryKey, bool) {
	return c.primaryKeys.At(id, v)
}

// SequenceDef returns the sequence definition visible at v, if any.
func (c *Catalog) SequenceDef(id types.SequenceID, v types.Version) (types.Sequence, bool) {
	return c.sequenceDefs.At(uint64(id), v)
}

// Flow returns the flow definition visible at v, if any.
func (c *Catalog) Flow(id types.FlowID, v types.Version) (types.FlowDef, bool) {
	return c.flows.At(uint64(id), v)
}

// Tables returns every table visible at v.
func (c *Catalog) Tables(v types.Version) []types.Table { return c.tables.All(v) }

// Views returns every view visible at v.
func (c *Catalog) Views(v types.Version) []types.View { return c.views.All(v) }

// Flows returns every flow definition visible at v.
func (c *Catalog) Flows(v types.Version) []types.FlowDef { return c.flows.All(v) }

// Apply installs one committed catalog change (a CDC event whose key is a
// catalog row) into the materialized mirror at the event's version; it
// returns nothing and ignores events of non-catalog key kinds. The Deltas
// that produce such events are built by the functions in mutations.go
// (CreateNamespace, CreateTable, ...).
func (c *Catalog) Apply(ev types.CDCEvent) {
	k := key.Encoded(ev.Key)
	if len(k) < 2 {
		return
	}
	switch k.Kind() {
	case key.KindNamespace:
		c.applyOrRemove(ev, c.namespaces, c.applyNamespace)
	case key.KindTable:
		c.applyOrRemove(ev, c.tables, c.applyTable)
	case key.KindView:
		c.applyOrRemove(ev, c.views, c.applyView)
	case key.KindRingBuffer:
		c.applyOrRemove(ev, c.ringBuffers, c.applyRingBuffer)
	case key.KindColumn:
		c.applyOrRemove(ev, c.columns, c.applyColumn)
	case key.KindPrimaryKey:
		c.applyOrRemove(ev, c.primaryKeys, c.applyPrimaryKey)
	case key.KindSequenceDef:
		c.applyOrRemove(ev, c.sequenceDefs, c.applySequenceDef)
	case key.KindFlow:
		c.applyOrRemove(ev, c.flows, c.applyFlow)
	}
}

func (c *Catalog) applyOrRemove(ev types.CDCEvent, idx interface{ Delete(uint64, types.Version) }, apply func([]byte, types.Version) error) {
	cat, ok := key.DecodeCatalogKey(key.Encoded(ev.Key).Kind(), key.Encoded(ev.Key)[2:])
	if !ok {
		return
	}
	if ev.Operation == types.OpDelete {
		idx.Delete(cat.ID, ev.Version)
		return
	}
	if err := apply(ev.Post, ev.Version); err != nil {
		c.logger.Error().Err(err).Msg("failed to apply catalog CDC event to mirror")
	}
}

// NextEntityID allocates a new catalog entity id from the shared system
// sequence, building the Delta that must be folded into the same commit
// that uses the id.
func NextEntityID(ctx context.Context, s store.Store, v types.Version) (uint64, store.Delta, error) {
	return Next(ctx, s, key.SystemSequenceKey{Name: "catalog_entity_id"}, v)
}

// AllocateID is NextEntityID without the id's meaning attached — used by
// callers building a Table, View, RingBuffer, Column, PrimaryKey, or Flow
// whose Create* builder takes a pre-allocated id.
func AllocateID(ctx context.Context, s store.Store, v types.Version) (uint64, store.Delta, error) {
	return NextEntityID(ctx, s, v)
}

// NewRequestID returns a random id suitable for correlating a single
// catalog mutation request across logs, independent of the persisted
// entity id sequence.
func NewRequestID() string {
	return uuid.NewString()
}

// EncodeRow JSON-marshals a catalog entity for storage, mirroring the
// teacher's pervasive json.Marshal-before-bolt.Put idiom rather than
// using row.Layout (catalog entities are heterogeneous structs, not a
// fixed column schema, so row.Layout's fixed-field model does not fit
// them the way it fits table rows).
func EncodeRow(v any) ([]byte, error) {
	return json.Marshal(v)
}
