package flow

import (
	"context"
)

// TakeOperator keeps only the first n diffs of a batch, spec section
// 4.6's Take(n) transform. Take is necessarily batch-local: the spec
// scopes this core to the flow operator contract (determinism,
// incremental equivalence, idempotence) without a persisted running
// total across batches, so composing Take with Sort within one graph to
// get a stable top-n requires both operators see the whole relevant
// batch together — true only when upstream has already coalesced all
// relevant diffs into one dispatch cycle.
type TakeOperator struct {
	index uint32
	n     int
}

// NewTakeOperator constructs a TakeOperator at the given graph index,
// keeping at most n diffs per batch.
func NewTakeOperator(index uint32, n int) *TakeOperator {
	return &TakeOperator{index: index, n: n}
}

// Index implements Operator.
func (t *TakeOperator) Index() uint32 { return t.index }

// Apply implements Operator.
func (t *TakeOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	if len(input) <= t.n {
		return input, nil
	}
	out := make(ChangeSet, t.n)
	copy(out, input[:t.n])
	return out, nil
}

