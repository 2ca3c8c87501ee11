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

// Package aggregation implements the grouped aggregate functions used by the
// Aggregate, Accumulate and Combine operators and their by-key variants.
package aggregation

import (
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
)

// Func is an aggregate function.
type Func int8

const (
	Count Func = iota
	CountStar
	Sum
	Min
	Max
	Avg
)

var funcNames = map[Func]string{
	Count:     "count",
	CountStar: "count(*)",
	Sum:       "sum",
	Min:       "min",
	Max:       "max",
	Avg:       "avg",
}

func (f Func) String() string {
	if name, ok := funcNames[f]; ok {
		return name
	}
	return fmt.Sprintf("func(%d)", int(f))
}

// ParseFunc maps a function name to a Func.
func ParseFunc(name string) (Func, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "count_star" {
		return CountStar, nil
	}
	for f, fn := range funcNames {
		if fn == n {
			return f, nil
		}
	}
	return Count, vterrors.Errorf(codes.InvalidArgument, "unknown aggregate function %q", name)
}

// Aggregate applies Func to Column. Column is ignored by CountStar.
type Aggregate struct {
	Func   Func
	Column int
}

func (a Aggregate) String() string {
	if a.Func == CountStar {
		return a.Func.String()
	}
	return fmt.Sprintf("%s($%d)", a.Func, a.Column)
}

// Operation groups rows by GroupColumns and computes Aggregates for every group.
// Result rows hold the group columns followed by the aggregate values.
type Operation struct {
	GroupColumns []int
	Aggregates   []Aggregate
}

func (op Operation) String() string {
	var sb strings.Builder
	for i, a := range op.Aggregates {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	if len(op.GroupColumns) > 0 {
		sb.WriteString(" group by ")
		for i, c := range op.GroupColumns {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", c)
		}
	}
	return sb.String()
}

// Arity returns the arity of the result rows.
func (op Operation) Arity() int {
	return len(op.GroupColumns) + len(op.Aggregates)
}

// GroupKeyFn returns the canonical group key of a row.
func (op Operation) GroupKeyFn() func(row sqltypes.Row) (string, error) {
	cols := op.GroupColumns
	return func(row sqltypes.Row) (string, error) {
		key, err := sqltypes.ColumnsKey(row, cols...)
		if err != nil {
			return "", vterrors.EvaluationError(err)
		}
		return key, nil
	}
}

// NewAccumulator returns an empty accumulator for one group.
func (op Operation) NewAccumulator() *Accumulator {
	return &Accumulator{op: op, states: make([]state, len(op.Aggregates))}
}

type state struct {
	count    int64
	intSum   int64
	floatSum float64
	isFloat  bool
	value    any
}

// Accumulator holds the running state of one group.
type Accumulator struct {
	op     Operation
	group  sqltypes.Row
	states []state
}

// Accumulate folds one input row into the accumulator.
func (a *Accumulator) Accumulate(row sqltypes.Row) error {
	if a.group == nil {
		a.group = make(sqltypes.Row, len(a.op.GroupColumns))
		for i, c := range a.op.GroupColumns {
			if c < 0 || c >= len(row) {
				return evalError("group column %d out of range for row of arity %d", c, len(row))
			}
			a.group[i] = row[c]
		}
	}
	for i, agg := range a.op.Aggregates {
		if agg.Func == CountStar {
			a.states[i].count++
			continue
		}
		if agg.Column < 0 || agg.Column >= len(row) {
			return evalError("aggregate column %d out of range for row of arity %d", agg.Column, len(row))
		}
		if err := a.states[i].add(agg.Func, sqltypes.Normalize(row[agg.Column])); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) add(f Func, v any) error {
	if v == nil {
		return nil
	}
	switch f {
	case Count:
		s.count++
	case Sum, Avg:
		s.count++
		switch v := v.(type) {
		case int64:
			if s.isFloat {
				s.floatSum += float64(v)
			} else {
				s.intSum += v
			}
		case float64:
			if !s.isFloat {
				s.isFloat = true
				s.floatSum = float64(s.intSum)
			}
			s.floatSum += v
		default:
			return evalError("cannot %s %s", f, sqltypes.FormatValue(v))
		}
	case Min, Max:
		if s.value == nil {
			s.value = v
			break
		}
		cmp, err := evalengine.Compare(v, s.value)
		if err != nil {
			return err
		}
		if (f == Min && cmp < 0) || (f == Max && cmp > 0) {
			s.value = v
		}
	}
	return nil
}

// Combine merges the state of other into a. Both must come from the same Operation.
func (a *Accumulator) Combine(other *Accumulator) error {
	if len(other.states) != len(a.states) {
		return vterrors.VT13001(fmt.Sprintf("cannot combine accumulators with %d and %d aggregates", len(a.states), len(other.states)))
	}
	if a.group == nil {
		a.group = other.group
	}
	for i, agg := range a.op.Aggregates {
		s, o := &a.states[i], other.states[i]
		switch agg.Func {
		case Count, CountStar:
			s.count += o.count
		case Sum, Avg:
			s.count += o.count
			switch {
			case s.isFloat || o.isFloat:
				if !s.isFloat {
					s.isFloat = true
					s.floatSum = float64(s.intSum)
				}
				if o.isFloat {
					s.floatSum += o.floatSum
				} else {
					s.floatSum += float64(o.intSum)
				}
			default:
				s.intSum += o.intSum
			}
		case Min, Max:
			if o.value == nil {
				continue
			}
			if err := s.add(agg.Func, o.value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finish returns the result row: group columns then aggregate values.
// COUNT of an empty group is 0; SUM, MIN, MAX and AVG are NULL.
func (a *Accumulator) Finish() sqltypes.Row {
	out := make(sqltypes.Row, 0, a.op.Arity())
	if a.group != nil {
		out = append(out, a.group...)
	} else {
		out = append(out, make(sqltypes.Row, len(a.op.GroupColumns))...)
	}
	for i, agg := range a.op.Aggregates {
		s := a.states[i]
		switch agg.Func {
		case Count, CountStar:
			out = append(out, s.count)
		case Sum:
			switch {
			case s.count == 0:
				out = append(out, nil)
			case s.isFloat:
				out = append(out, s.floatSum)
			default:
				out = append(out, s.intSum)
			}
		case Avg:
			if s.count == 0 {
				out = append(out, nil)
				continue
			}
			sum := float64(s.intSum)
			if s.isFloat {
				sum = s.floatSum
			}
			out = append(out, sum/float64(s.count))
		case Min, Max:
			out = append(out, s.value)
		}
	}
	return out
}

func evalError(format string, args ...any) error {
	return vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, format, args...)
}
