package catalog

import "github.com/reifydb/reifydb/pkg/types"

// Hook identifies a point in a write's lifecycle where interceptors run,
// grounded on original_source's crates/core/src/interceptor/table_def.rs
// pre/post create/update/delete chain. Collapsed here to the single
// shape spec section 9's REDESIGN FLAGS calls for: "implement as a
// vector of trait objects per hook point" rather than one interceptor
// type per entity kind.
type Hook uint8

const (
	PreInsert Hook = iota
	PostInsert
	PreUpdate
	PostUpdate
	PreDelete
)

// Interceptor observes or vetoes one change to a row or catalog entity.
// Returning a non-nil error aborts the write before it reaches the
// store; Pre-hooks run before the write is staged, Post-hooks after a
// successful local write but before commit, so a Post-hook error still
// aborts the whole transaction.
type Interceptor func(source types.SourceID, diff types.Diff) error

// Chain is an ordered, per-hook-point list of interceptors, folded left
// to right with short-circuit on the first error.
type Chain struct {
	hooks map[Hook][]Interceptor
}

// NewChain returns an empty interceptor chain.
func NewChain() *Chain {
	return &Chain{hooks: make(map[Hook][]Interceptor)}
}

// Register appends fn to the chain for the given hook point.
func (c *Chain) Register(h Hook, fn Interceptor) {
	c.hooks[h] = append(c.hooks[h], fn)
}

// Run folds every interceptor registered for h over diff, in
// registration order, stopping at the first error.
func (c *Chain) Run(h Hook, source types.SourceID, diff types.Diff) error {
	for _, fn := range c.hooks[h] {
		if err := fn(source, diff); err != nil {
			return err
		}
	}
	return nil
}
