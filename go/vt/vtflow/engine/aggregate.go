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

package engine

import (
	"context"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vtflow/aggregation"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
)

// AggregateMode selects the stage an aggregation processor implements.
type AggregateMode int8

const (
	// AggregateAll folds every input row and emits the final rows.
	AggregateAll AggregateMode = iota
	// AccumulatePartial folds input rows and emits partial rows.
	AccumulatePartial
	// CombinePartial merges partial rows and emits the final rows.
	CombinePartial
)

// AggregateSupplier runs one stage of an aggregation. Keyed stages run in
// parallel behind partitioned edges; they only report the groups they saw.
type AggregateSupplier struct {
	Mode        AggregateMode
	Keyed       bool
	Aggregation aggregation.Operation
}

var _ dag.ProcessorSupplier = (*AggregateSupplier)(nil)

// Get implements dag.ProcessorSupplier.
func (s *AggregateSupplier) Get(_ *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	out := make([]dag.Processor, count)
	for i := range out {
		out[i] = &aggregateProcessor{mode: s.Mode, global: !s.Keyed, op: s.Aggregation}
	}
	return out, nil
}

type aggregateProcessor struct {
	mode   AggregateMode
	global bool
	op     aggregation.Operation
}

func (p *aggregateProcessor) Process(ctx context.Context, inbox <-chan sqltypes.Row, emit dag.Emitter) error {
	groups := aggregation.NewGroups(p.op, p.global && p.mode != AccumulatePartial)
	fold := groups.Accumulate
	if p.mode == CombinePartial {
		fold = groups.Combine
	}
	// fold errors are already classified: evaluation failures for input
	// rows, internal errors for malformed partial rows
	if err := drain(ctx, inbox, fold); err != nil {
		return err
	}

	out := groups.Results()
	if p.mode == AccumulatePartial {
		out = groups.Partials()
	}
	for _, row := range out {
		if err := emit(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
