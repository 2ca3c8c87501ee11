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

package physical

import (
	"fmt"
	"strings"

	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
)

// Describe prints the operator tree, one operator per line, children indented
// below their parent.
func Describe(op Operator) string {
	var sb strings.Builder
	describe(&sb, op, 0)
	return sb.String()
}

func describe(sb *strings.Builder, op Operator, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(op.Kind().String())
	if details := Details(op); details != "" {
		sb.WriteString("(")
		sb.WriteString(details)
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	for _, in := range op.Inputs() {
		if in != nil {
			describe(sb, in, depth+1)
		}
	}
}

// Details returns the parameters of a single operator in a compact form.
func Details(op Operator) string {
	switch op := op.(type) {
	case *Values:
		return fmt.Sprintf("rows=%d", len(op.Rows))
	case *Insert:
		return "table=" + tableName(op.Table)
	case *FullScan:
		s := "table=" + tableName(op.Table)
		if op.Filter != nil {
			s += " filter=" + op.Filter.String()
		}
		if op.Projection != nil {
			s += " project=[" + evalengine.FormatExprs(op.Projection) + "]"
		}
		return s
	case *Filter:
		return op.Predicate.String()
	case *Project:
		return evalengine.FormatExprs(op.Projection)
	case *Aggregate:
		return op.Aggregation.String()
	case *AggregateByKey:
		return op.Aggregation.String()
	case *Accumulate:
		return op.Aggregation.String()
	case *AccumulateByKey:
		return op.Aggregation.String()
	case *Combine:
		return op.Aggregation.String()
	case *CombineByKey:
		return op.Aggregation.String()
	case *NestedLoopJoin:
		kind := "outer"
		if op.Join.Inner {
			kind = "inner"
		}
		s := fmt.Sprintf("%s left=$%d", kind, op.Join.LeftEquiJoinIndex)
		if op.Join.Condition != nil {
			s += " on " + op.Join.Condition.String()
		}
		return s
	case *Root:
		return "initiator=" + op.InitiatorMember
	}
	return ""
}

func tableName(t *Table) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}
