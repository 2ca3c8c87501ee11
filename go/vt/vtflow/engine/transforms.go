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
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
)

// ValuesSupplier emits a fixed list of rows once per query: only the first
// instance in the cluster produces them.
type ValuesSupplier struct {
	Rows []sqltypes.Row
}

var _ dag.Source = (*ValuesSupplier)(nil)

// IsSource implements dag.Source.
func (*ValuesSupplier) IsSource() bool { return true }

// Get implements dag.ProcessorSupplier.
func (s *ValuesSupplier) Get(pctx *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	out := make([]dag.Processor, count)
	for i := range out {
		var rows []sqltypes.Row
		if pctx.BaseIndex+i == 0 {
			rows = s.Rows
		}
		out[i] = dag.ProcessorFunc(func(ctx context.Context, _ <-chan sqltypes.Row, emit dag.Emitter) error {
			for _, row := range rows {
				if err := emit(ctx, row.Copy()); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return out, nil
}

// FilterSupplier drops the rows for which the predicate is not true.
type FilterSupplier struct {
	Predicate evalengine.Expr
}

var _ dag.ProcessorSupplier = (*FilterSupplier)(nil)

// Get implements dag.ProcessorSupplier.
func (s *FilterSupplier) Get(_ *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	filter := evalengine.FilterFn(s.Predicate)
	return repeat(count, func(ctx context.Context, inbox <-chan sqltypes.Row, emit dag.Emitter) error {
		return drain(ctx, inbox, func(row sqltypes.Row) error {
			ok, err := filter(row)
			if err != nil {
				return vterrors.EvaluationError(err)
			}
			if !ok {
				return nil
			}
			return emit(ctx, row)
		})
	}), nil
}

// ProjectSupplier replaces every row by its projection.
type ProjectSupplier struct {
	Projection []evalengine.Expr
}

var _ dag.ProcessorSupplier = (*ProjectSupplier)(nil)

// Get implements dag.ProcessorSupplier.
func (s *ProjectSupplier) Get(_ *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	project := evalengine.ProjectionFn(s.Projection)
	return repeat(count, func(ctx context.Context, inbox <-chan sqltypes.Row, emit dag.Emitter) error {
		return drain(ctx, inbox, func(row sqltypes.Row) error {
			out, err := project(row)
			if err != nil {
				return vterrors.EvaluationError(err)
			}
			return emit(ctx, out)
		})
	}), nil
}

// repeat returns count instances of a stateless processor.
func repeat(count int, fn dag.ProcessorFunc) []dag.Processor {
	out := make([]dag.Processor, count)
	for i := range out {
		out[i] = fn
	}
	return out
}
