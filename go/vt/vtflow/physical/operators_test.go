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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vtflow/aggregation"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
	"vtflow.io/vtflow/go/vt/vtflow/extract"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "Values", ValuesKind.String())
	assert.Equal(t, "CombineByKey", CombineByKeyKind.String())
	assert.Equal(t, "Root", RootKind.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}

func TestDescribe(t *testing.T) {
	users := &Table{
		Name:      "users",
		Connector: "map",
		MapName:   "users",
		Fields: []TableField{
			{Name: "id", Path: extract.KeyPath(extract.ThisPath), Type: extract.IntegerType},
			{Name: "name", Path: extract.ValuePath("name"), Type: extract.VarcharType},
		},
	}
	plan := &Root{
		InitiatorMember: "m1",
		Input: &NestedLoopJoin{
			Left: &Filter{
				Input:     &Values{Rows: []sqltypes.Row{sqltypes.MakeRow(1), sqltypes.MakeRow(2)}},
				Predicate: evalengine.NewComparisonExpr(evalengine.GreaterThanOp, evalengine.NewColumn(0), evalengine.NewLiteral(1)),
			},
			Right: &FullScan{Table: users, Projection: []evalengine.Expr{evalengine.NewColumn(1)}},
			Join:  JoinInfo{Inner: true, LeftEquiJoinIndex: 0},
		},
	}
	want := `Root(initiator=m1)
  NestedLoopJoin(inner left=$0)
    Filter($0 > INT64(1))
      Values(rows=2)
    FullScan(table=users project=[$1])
`
	assert.Equal(t, want, Describe(plan))

	agg := &Combine{
		Input: &Accumulate{
			Input:       &Values{},
			Aggregation: aggregation.Operation{Aggregates: []aggregation.Aggregate{{Func: aggregation.CountStar}}},
		},
		Aggregation: aggregation.Operation{Aggregates: []aggregation.Aggregate{{Func: aggregation.CountStar}}},
	}
	assert.Equal(t, "Combine(count(*))\n  Accumulate(count(*))\n    Values(rows=0)\n", Describe(agg))
}

func TestToTree(t *testing.T) {
	count := aggregation.Operation{Aggregates: []aggregation.Aggregate{{Func: aggregation.CountStar}}}
	plan := &Combine{
		Input:       &Accumulate{Input: &Values{}, Aggregation: count},
		Aggregation: count,
	}
	tree := ToTree(plan)
	assert.True(t, strings.HasPrefix(tree, "Combine (count(*))\n"), tree)
	assert.Contains(t, tree, "└── Accumulate (count(*))")
	assert.Contains(t, tree, "└── Values (rows=0)")
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(tree), "\n")+1)
}

func TestTableFields(t *testing.T) {
	users := &Table{
		Fields: []TableField{
			{Name: "name", Path: extract.ValuePath("name")},
			{Name: "id", Path: extract.KeyPath(extract.ThisPath)},
		},
	}
	assert.Equal(t, 0, users.FieldIndex("name"))
	assert.Equal(t, -1, users.FieldIndex("age"))
	assert.Equal(t, 1, users.KeyField())
}
