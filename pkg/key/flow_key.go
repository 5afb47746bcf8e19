package key

import "github.com/reifydb/reifydb/pkg/types"

// FlowStateKey addresses one entry in a stateful flow operator's private
// keyspace: kind FlowState, then big-endian (flow id, operator index),
// then the operator's own arbitrary user key. Operators are guaranteed a
// disjoint keyspace from one another (spec section 4.6) because the
// (flow id, operator index) prefix is unique per operator instance.
type FlowStateKey struct {
	Flow     types.FlowID
	Operator uint32
	UserKey  []byte
}

// Encode implements EncodableKey.
func (k FlowStateKey) Encode() Encoded {
	buf := header(KindFlowState)
	buf = putUint64(buf, uint64(k.Flow))
	buf = putUint32(buf, k.Operator)
	return append(buf, k.UserKey...)
}

// operatorPrefix returns the prefix shared by every state entry of one
// operator instance within one flow.
func operatorPrefix(flow types.FlowID, operator uint32) []byte {
	buf := header(KindFlowState)
	buf = putUint64(buf, uint64(flow))
	return putUint32(buf, operator)
}

// FlowStatePrefix returns the Range matching every state entry of one
// operator instance — the operator's prefix_iter/clear range.
func FlowStatePrefix(flow types.FlowID, operator uint32) Range {
	return PrefixRange(operatorPrefix(flow, operator))
}
