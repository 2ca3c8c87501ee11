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

package aggregation

import (
	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
)

// Groups maps group keys to accumulators, remembering the order in which
// groups were first seen.
type Groups struct {
	op     Operation
	keyFn  func(sqltypes.Row) (string, error)
	global bool
	order  []string
	groups map[string]*Accumulator
}

// NewGroups returns an empty set of groups. When global is set and the
// operation has no group columns, Results reports one row even if no input
// was seen, the way an ungrouped SQL aggregate does.
func NewGroups(op Operation, global bool) *Groups {
	return &Groups{
		op:     op,
		keyFn:  op.GroupKeyFn(),
		global: global && len(op.GroupColumns) == 0,
		groups: make(map[string]*Accumulator),
	}
}

func (g *Groups) group(key string) *Accumulator {
	acc, ok := g.groups[key]
	if !ok {
		acc = g.op.NewAccumulator()
		g.groups[key] = acc
		g.order = append(g.order, key)
	}
	return acc
}

// Accumulate folds an input row into its group.
func (g *Groups) Accumulate(row sqltypes.Row) error {
	key, err := g.keyFn(row)
	if err != nil {
		return err
	}
	return g.group(key).Accumulate(row)
}

// Combine merges a partial row produced by Partials into its group.
func (g *Groups) Combine(row sqltypes.Row) error {
	key, acc, err := FromPartialRow(row)
	if err != nil {
		return err
	}
	return g.group(key).Combine(acc)
}

// Len returns the number of groups seen.
func (g *Groups) Len() int {
	return len(g.order)
}

// Partials returns one partial row per group: the group key followed by the
// accumulator. Partial rows travel between the accumulate and combine stages.
func (g *Groups) Partials() []sqltypes.Row {
	out := make([]sqltypes.Row, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, PartialRow(key, g.groups[key]))
	}
	return out
}

// Results returns the final row of every group.
func (g *Groups) Results() []sqltypes.Row {
	if len(g.order) == 0 && g.global {
		return []sqltypes.Row{g.op.NewAccumulator().Finish()}
	}
	out := make([]sqltypes.Row, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.groups[key].Finish())
	}
	return out
}

// PartialRow builds the row carrying a partial aggregation.
func PartialRow(key string, acc *Accumulator) sqltypes.Row {
	return sqltypes.Row{key, acc}
}

// FromPartialRow unpacks a row built by PartialRow.
func FromPartialRow(row sqltypes.Row) (string, *Accumulator, error) {
	if len(row) != 2 {
		return "", nil, vterrors.VT13001("partial aggregation row of arity ", len(row))
	}
	key, ok := row[0].(string)
	if !ok {
		return "", nil, vterrors.VT13001("partial aggregation key of type ", typeName(row[0]))
	}
	acc, ok := row[1].(*Accumulator)
	if !ok {
		return "", nil, vterrors.VT13001("partial aggregation state of type ", typeName(row[1]))
	}
	return key, acc, nil
}

func typeName(v any) string {
	if v == nil {
		return "NULL"
	}
	return sqltypes.FormatValue(v)
}
