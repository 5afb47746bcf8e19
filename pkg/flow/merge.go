package flow

import "context"

// MergeOperator unions two upstream change streams into one, spec
// section 4.6's Merge(union) relational node. Diffs from either side
// pass through unchanged and in the order they are submitted; like
// JoinOperator, a two-input node does not fit Operator's single-stream
// Apply, so graphs call LeftApply/RightApply directly rather than the
// uniform Operator interface.
type MergeOperator struct {
	index uint32
}

// NewMergeOperator constructs a MergeOperator at the given graph index.
func NewMergeOperator(index uint32) *MergeOperator {
	return &MergeOperator{index: index}
}

// Index implements Operator.
func (m *MergeOperator) Index() uint32 { return m.index }

// Apply implements Operator by treating input as one of the two sides;
// for an actual merge node, call LeftApply and RightApply on their
// respective upstream outputs and concatenate the results before
// handing them to the next stage.
func (m *MergeOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	return input, nil
}

// LeftApply passes left-side diffs through unchanged.
func (m *MergeOperator) LeftApply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	return input, nil
}

// RightApply passes right-side diffs through unchanged.
func (m *MergeOperator) RightApply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	return input, nil
}
