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

// Package physical defines the physical operator tree handed over by the
// optimizer. Operators are immutable once built.
package physical

import (
	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vtflow/aggregation"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
)

// Kind identifies the type of a physical operator.
type Kind int8

const (
	ValuesKind Kind = iota
	InsertKind
	FullScanKind
	FilterKind
	ProjectKind
	AggregateKind
	AggregateByKeyKind
	AccumulateKind
	AccumulateByKeyKind
	CombineKind
	CombineByKeyKind
	NestedLoopJoinKind
	RootKind
)

var kindNames = [...]string{
	ValuesKind:          "Values",
	InsertKind:          "Insert",
	FullScanKind:        "FullScan",
	FilterKind:          "Filter",
	ProjectKind:         "Project",
	AggregateKind:       "Aggregate",
	AggregateByKeyKind:  "AggregateByKey",
	AccumulateKind:      "Accumulate",
	AccumulateByKeyKind: "AccumulateByKey",
	CombineKind:         "Combine",
	CombineByKeyKind:    "CombineByKey",
	NestedLoopJoinKind:  "NestedLoopJoin",
	RootKind:            "Root",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Operator is a node of the physical plan. The set of implementations is closed.
type Operator interface {
	Kind() Kind
	Inputs() []Operator
	physical()
}

type (
	// Values produces a fixed list of rows.
	Values struct {
		Rows []sqltypes.Row
	}

	// Insert writes its input into a table.
	Insert struct {
		Input Operator
		Table *Table
	}

	// FullScan reads every entry of a table. Filter and Projection are
	// expressed over the table fields, in declaration order, and are pushed
	// down into the reader.
	FullScan struct {
		Table      *Table
		Filter     evalengine.Expr
		Projection []evalengine.Expr
	}

	// Filter keeps the rows for which Predicate is true.
	Filter struct {
		Input     Operator
		Predicate evalengine.Expr
	}

	// Project replaces every row by the values of Projection.
	Project struct {
		Input      Operator
		Projection []evalengine.Expr
	}

	// Aggregate folds all of its input on a single instance.
	Aggregate struct {
		Input       Operator
		Aggregation aggregation.Operation
	}

	// AggregateByKey aggregates in parallel, each instance owning a share of the groups.
	AggregateByKey struct {
		Input       Operator
		Aggregation aggregation.Operation
	}

	// Accumulate computes per-instance partial aggregates.
	Accumulate struct {
		Input       Operator
		Aggregation aggregation.Operation
	}

	// AccumulateByKey computes per-instance partial aggregates per group key.
	AccumulateByKey struct {
		Input       Operator
		Aggregation aggregation.Operation
	}

	// Combine merges the partials of an Accumulate on a single instance.
	Combine struct {
		Input       Operator
		Aggregation aggregation.Operation
	}

	// CombineByKey merges the partials of an AccumulateByKey per group key.
	CombineByKey struct {
		Input       Operator
		Aggregation aggregation.Operation
	}

	// NestedLoopJoin joins every Left row with the entries of the Right table.
	// Right is always a FullScan of the joined table.
	NestedLoopJoin struct {
		Left, Right Operator
		Join        JoinInfo
	}

	// Root delivers the query result to the client of the initiator member.
	Root struct {
		Input           Operator
		QueryID         string
		InitiatorMember string
	}

	// JoinInfo describes an equi-join on a single left column.
	JoinInfo struct {
		Inner             bool
		LeftEquiJoinIndex int
		// Condition is evaluated over the concatenation of the left and right rows.
		Condition evalengine.Expr
	}
)

func (*Values) Kind() Kind          { return ValuesKind }
func (*Insert) Kind() Kind          { return InsertKind }
func (*FullScan) Kind() Kind        { return FullScanKind }
func (*Filter) Kind() Kind          { return FilterKind }
func (*Project) Kind() Kind         { return ProjectKind }
func (*Aggregate) Kind() Kind       { return AggregateKind }
func (*AggregateByKey) Kind() Kind  { return AggregateByKeyKind }
func (*Accumulate) Kind() Kind      { return AccumulateKind }
func (*AccumulateByKey) Kind() Kind { return AccumulateByKeyKind }
func (*Combine) Kind() Kind         { return CombineKind }
func (*CombineByKey) Kind() Kind    { return CombineByKeyKind }
func (*NestedLoopJoin) Kind() Kind  { return NestedLoopJoinKind }
func (*Root) Kind() Kind            { return RootKind }

func (*Values) Inputs() []Operator            { return nil }
func (*FullScan) Inputs() []Operator          { return nil }
func (o *Insert) Inputs() []Operator          { return []Operator{o.Input} }
func (o *Filter) Inputs() []Operator          { return []Operator{o.Input} }
func (o *Project) Inputs() []Operator         { return []Operator{o.Input} }
func (o *Aggregate) Inputs() []Operator       { return []Operator{o.Input} }
func (o *AggregateByKey) Inputs() []Operator  { return []Operator{o.Input} }
func (o *Accumulate) Inputs() []Operator      { return []Operator{o.Input} }
func (o *AccumulateByKey) Inputs() []Operator { return []Operator{o.Input} }
func (o *Combine) Inputs() []Operator         { return []Operator{o.Input} }
func (o *CombineByKey) Inputs() []Operator    { return []Operator{o.Input} }
func (o *NestedLoopJoin) Inputs() []Operator  { return []Operator{o.Left, o.Right} }
func (o *Root) Inputs() []Operator            { return []Operator{o.Input} }

func (*Values) physical()          {}
func (*Insert) physical()          {}
func (*FullScan) physical()        {}
func (*Filter) physical()          {}
func (*Project) physical()         {}
func (*Aggregate) physical()       {}
func (*AggregateByKey) physical()  {}
func (*Accumulate) physical()      {}
func (*AccumulateByKey) physical() {}
func (*Combine) physical()         {}
func (*CombineByKey) physical()    {}
func (*NestedLoopJoin) physical()  {}
func (*Root) physical()            {}
