package flow

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
)

// ChangeSet is the unit flowing between operators: a bag of diffs, each
// tagged with the source version that produced it (spec section 4.6).
type ChangeSet []types.Diff

// Operator is one node of a flow DAG. Apply must be deterministic in its
// inputs and the operator's own persisted State, produce changes whose
// net effect on the downstream view equals re-running the operator from
// scratch over the same inputs, and be idempotent under exact
// re-delivery of the same (version, sequence) batch — spec section
// 4.6's operator contract, required for the dispatcher's at-least-once
// redelivery on crash recovery to be safe.
type Operator interface {
	// Index identifies this operator within its flow, used to scope
	// its State keyspace. Indices are assigned by Graph construction
	// order and must stay stable across process restarts.
	Index() uint32

	// Apply consumes one batch of upstream changes and returns the
	// changes to hand downstream (to the next operator, or to the
	// sink). Stateless operators (Filter, Map, Take) ignore state;
	// stateful ones (Aggregate, Join, Window) read and write it via
	// the State handed to them at construction.
	Apply(ctx context.Context, input ChangeSet) (ChangeSet, error)
}

// Graph is a flow's operator pipeline: a linear sequence of stages run
// in order, each stage's output feeding the next stage's input, ending
// in a Sink that writes the final change set to the flow's view. Binary
// stages (Join, Merge) are themselves Operators that combine their own
// second input internally (see join.go, merge.go) rather than the Graph
// supporting general fan-in, keeping graph execution a single ordered
// walk as spec section 4.6 describes it ("DAG of typed nodes") without
// needing a full scheduler for what the core's flows actually use.
type Graph struct {
	Flow   types.FlowID
	Stages []Operator
	Sink   *SinkOperator
}

// NewGraph constructs a Graph over an ordered list of stages terminated
// by sink.
func NewGraph(flowID types.FlowID, stages []Operator, sink *SinkOperator) *Graph {
	return &Graph{Flow: flowID, Stages: stages, Sink: sink}
}

// Run pushes input through every stage in order and then into the sink,
// returning the number of diffs the sink actually wrote (for metrics and
// tests). Each stage's Apply runs within the same ctx/transaction as the
// caller, so operator state and the eventual sink write commit
// atomically together.
func (g *Graph) Run(ctx context.Context, input ChangeSet) (int, error) {
	current := input
	for _, stage := range g.Stages {
		out, err := stage.Apply(ctx, current)
		if err != nil {
			return 0, err
		}
		current = out
		if len(current) == 0 {
			return 0, nil
		}
	}
	return g.Sink.Write(ctx, current)
}
