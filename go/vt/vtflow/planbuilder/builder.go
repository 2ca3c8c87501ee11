/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package planbuilder compiles a physical operator tree into a dataflow graph.
package planbuilder

import (
	"fmt"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/stats"
	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/aggregation"
	"vtflow.io/vtflow/go/vt/vtflow/connector"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/engine"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
)

var (
	graphsCompiled = stats.NewCountersWithSingleLabel("GraphsCompiled", "Number of dataflow graphs compiled, by the operator under the root", "Operator")
	compileErrors  = stats.NewCounter("GraphCompileErrors", "Number of physical plans that failed to compile")
)

// builder holds the state of one compilation. It is used once.
type builder struct {
	graph       *dag.Graph
	localMember string
	connectors  connector.Resolver
}

// Build compiles the plan rooted at root into a validated graph. localMember
// is the member compiling the plan: single-instance vertices are placed on it.
func Build(root physical.Operator, localMember string, connectors connector.Resolver) (*dag.Graph, error) {
	if root == nil {
		return nil, vterrors.VT13001("nil physical plan")
	}
	b := &builder{
		graph:       dag.NewGraph(),
		localMember: localMember,
		connectors:  connectors,
	}
	if _, err := b.visit(root); err != nil {
		compileErrors.Add(1)
		return nil, err
	}
	if err := b.graph.Validate(); err != nil {
		compileErrors.Add(1)
		return nil, err
	}

	label := root.Kind().String()
	if inputs := root.Inputs(); root.Kind() == physical.RootKind && len(inputs) == 1 {
		label = inputs[0].Kind().String()
	}
	graphsCompiled.Add(label, 1)
	if log.V(1) {
		log.Infof("compiled plan into %d vertices and %d edges:\n%s", len(b.graph.Vertices()), len(b.graph.Edges()), physical.Describe(root))
	}
	return b.graph, nil
}

// visit creates the vertex of op, after those of its inputs.
func (b *builder) visit(op physical.Operator) (*dag.Vertex, error) {
	switch op := op.(type) {
	case *physical.Values:
		return b.onValues(op)
	case *physical.Insert:
		return b.onInsert(op)
	case *physical.FullScan:
		return b.onFullScan(op)
	case *physical.Filter:
		v := b.graph.NewUniqueVertex("Filter", op.Kind().String(), &engine.FilterSupplier{Predicate: op.Predicate}, dag.ParallelPlacement())
		return v, b.connectInput(op.Input, v, nil)
	case *physical.Project:
		v := b.graph.NewUniqueVertex("Project", op.Kind().String(), &engine.ProjectSupplier{Projection: op.Projection}, dag.ParallelPlacement())
		return v, b.connectInput(op.Input, v, nil)
	case *physical.Aggregate:
		return b.onSingleInstance("Aggregate", op, op.Input, engine.AggregateAll, op.Aggregation)
	case *physical.Accumulate:
		return b.onAccumulate(op)
	case *physical.Combine:
		return b.onSingleInstance("Combine", op, op.Input, engine.CombinePartial, op.Aggregation)
	case *physical.AggregateByKey:
		return b.onAggregateByKey(op)
	case *physical.AccumulateByKey:
		return b.onAccumulateByKey(op)
	case *physical.CombineByKey:
		return b.onCombineByKey(op)
	case *physical.NestedLoopJoin:
		return b.onNestedLoopJoin(op)
	case *physical.Root:
		return b.onRoot(op)
	case nil:
		return nil, vterrors.VT13001("nil physical operator")
	default:
		return nil, vterrors.VT13001(fmt.Sprintf("unknown physical operator %T", op))
	}
}

func (b *builder) onValues(op *physical.Values) (*dag.Vertex, error) {
	return b.graph.NewUniqueVertex("Values", op.Kind().String(), &engine.ValuesSupplier{Rows: op.Rows}, dag.ParallelPlacement()), nil
}

func (b *builder) onInsert(op *physical.Insert) (*dag.Vertex, error) {
	conn, err := b.connectors.Connector(op.Table)
	if err != nil {
		return nil, err
	}
	v, err := conn.Sink(b.graph, op.Table)
	if err != nil {
		return nil, err
	}
	return v, b.connectInput(op.Input, v, nil)
}

func (b *builder) onFullScan(op *physical.FullScan) (*dag.Vertex, error) {
	conn, err := b.connectors.Connector(op.Table)
	if err != nil {
		return nil, err
	}
	return conn.FullScanReader(b.graph, op.Table, op.Filter, op.Projection)
}

// onSingleInstance creates an aggregation stage that runs once, on the local
// member, and receives every row of its input.
func (b *builder) onSingleInstance(name string, op physical.Operator, input physical.Operator, mode engine.AggregateMode, agg aggregation.Operation) (*dag.Vertex, error) {
	supplier := &engine.AggregateSupplier{Mode: mode, Aggregation: agg}
	v := b.graph.NewUniqueVertex(name, op.Kind().String(), supplier, dag.SingleInstanceOn(b.localMember))
	return v, b.connectInput(input, v, b.toLocalMember)
}

func (b *builder) onAccumulate(op *physical.Accumulate) (*dag.Vertex, error) {
	supplier := &engine.AggregateSupplier{Mode: engine.AccumulatePartial, Aggregation: op.Aggregation}
	v := b.graph.NewUniqueVertex("Accumulate", op.Kind().String(), supplier, dag.ParallelPlacement())
	return v, b.connectInput(op.Input, v, nil)
}

func (b *builder) onAggregateByKey(op *physical.AggregateByKey) (*dag.Vertex, error) {
	supplier := &engine.AggregateSupplier{Mode: engine.AggregateAll, Keyed: true, Aggregation: op.Aggregation}
	v := b.graph.NewUniqueVertex("AggregateByKey", op.Kind().String(), supplier, dag.ParallelPlacement())
	return v, b.connectInput(op.Input, v, func(e *dag.Edge) {
		e.Partitioned(groupKeyName(op.Aggregation), op.Aggregation.GroupKeyFn()).Distributed()
	})
}

func (b *builder) onAccumulateByKey(op *physical.AccumulateByKey) (*dag.Vertex, error) {
	supplier := &engine.AggregateSupplier{Mode: engine.AccumulatePartial, Keyed: true, Aggregation: op.Aggregation}
	v := b.graph.NewUniqueVertex("AccumulateByKey", op.Kind().String(), supplier, dag.ParallelPlacement())
	return v, b.connectInput(op.Input, v, func(e *dag.Edge) {
		e.Partitioned(groupKeyName(op.Aggregation), op.Aggregation.GroupKeyFn())
	})
}

func (b *builder) onCombineByKey(op *physical.CombineByKey) (*dag.Vertex, error) {
	supplier := &engine.AggregateSupplier{Mode: engine.CombinePartial, Keyed: true, Aggregation: op.Aggregation}
	v := b.graph.NewUniqueVertex("CombineByKey", op.Kind().String(), supplier, dag.ParallelPlacement())
	return v, b.connectInput(op.Input, v, func(e *dag.Edge) {
		e.Partitioned("entryKey", entryKey).Distributed()
	})
}

func (b *builder) onNestedLoopJoin(op *physical.NestedLoopJoin) (*dag.Vertex, error) {
	right, ok := op.Right.(*physical.FullScan)
	if !ok {
		return nil, vterrors.VT13001(fmt.Sprintf("right side of a nested loop join must be a full scan, got %T", op.Right))
	}
	conn, err := b.connectors.Connector(right.Table)
	if err != nil {
		return nil, err
	}
	join, err := conn.NestedLoopReader(b.graph, right.Table, right.Filter, right.Projection, op.Join)
	if err != nil {
		return nil, err
	}
	return join.Vertex, b.connectInput(op.Left, join.Vertex, join.ConfigureEdge)
}

// onRoot creates the client sink. The plan is compiled on the member that
// received the query, so that member also hosts the sink.
func (b *builder) onRoot(op *physical.Root) (*dag.Vertex, error) {
	if op.InitiatorMember != "" && op.InitiatorMember != b.localMember {
		return nil, vterrors.VT13001(fmt.Sprintf("query initiated on %s compiled on %s", op.InitiatorMember, b.localMember))
	}
	supplier := &engine.ClientSinkSupplier{QueryID: op.QueryID, InitiatorMember: b.localMember}
	v := b.graph.NewUniqueVertex("ClientSink", op.Kind().String(), supplier, dag.SingleInstanceOn(b.localMember))
	return v, b.connectInput(op.Input, v, b.toLocalMember)
}

// connectInput visits input and connects its vertex to target. configure,
// when set, adjusts the edge before it is added.
func (b *builder) connectInput(input physical.Operator, target *dag.Vertex, configure func(e *dag.Edge)) error {
	from, err := b.visit(input)
	if err != nil {
		return err
	}
	edge := dag.Between(from, target)
	if configure != nil {
		configure(edge)
	}
	return b.graph.AddEdge(edge)
}

func (b *builder) toLocalMember(e *dag.Edge) {
	e.AllToOne(b.localMember)
}

// entryKey routes partial aggregation rows by their group key.
func entryKey(row sqltypes.Row) (string, error) {
	key, _, err := aggregation.FromPartialRow(row)
	return key, err
}

func groupKeyName(op aggregation.Operation) string {
	if len(op.GroupColumns) == 0 {
		return "()"
	}
	name := ""
	for i, c := range op.GroupColumns {
		if i > 0 {
			name += ", "
		}
		name += fmt.Sprintf("$%d", c)
	}
	return name
}
