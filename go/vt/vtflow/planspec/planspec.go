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

// Package planspec reads physical plans and table metadata from YAML
// documents. It is what vtflow explain and vtflow run load from disk:
//
//	tables:
//	- name: users
//	  valueDescriptor: map
//	  fields:
//	  - {name: id, path: __key, type: BIGINT}
//	  - {name: name, path: name, type: VARCHAR}
//	maps:
//	  users:
//	  - {key: 1, value: {name: ann}}
//	plan:
//	  op: project
//	  projection: [{col: 1}]
//	  input: {op: scan, table: users}
package planspec

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"google.golang.org/grpc/codes"
	"sigs.k8s.io/yaml"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/aggregation"
	"vtflow.io/vtflow/go/vt/vtflow/extract"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
)

type (
	// Document is a plan file.
	Document struct {
		Tables []TableSpec `json:"tables,omitempty"`
		// Maps holds the entries written to the named maps by Seed.
		Maps map[string][]EntrySpec `json:"maps,omitempty"`
		Plan *Node                  `json:"plan"`
	}

	// TableSpec declares a table.
	TableSpec struct {
		Name string `json:"name"`
		// Connector defaults to "map".
		Connector string `json:"connector,omitempty"`
		// Map defaults to the table name.
		Map             string      `json:"map,omitempty"`
		KeyDescriptor   string      `json:"keyDescriptor,omitempty"`
		ValueDescriptor string      `json:"valueDescriptor,omitempty"`
		Fields          []FieldSpec `json:"fields"`
	}

	// FieldSpec declares a table column. Path takes the forms "__key",
	// "__key.a", "__value", "__value.a" or "a".
	FieldSpec struct {
		Name string `json:"name"`
		Path string `json:"path"`
		Type string `json:"type,omitempty"`
	}

	// EntrySpec is one key-value pair of a seeded map.
	EntrySpec struct {
		Key   any `json:"key"`
		Value any `json:"value"`
	}

	// Node is an operator of the plan tree. Op selects the operator and
	// decides which of the other fields are read.
	Node struct {
		Op    string  `json:"op"`
		Input *Node   `json:"input,omitempty"`
		Left  *Node   `json:"left,omitempty"`
		Right *Node   `json:"right,omitempty"`
		Table string  `json:"table,omitempty"`
		Rows  [][]any `json:"rows,omitempty"`

		Filter     *Expr   `json:"filter,omitempty"`
		Projection []*Expr `json:"projection,omitempty"`

		GroupBy    []int           `json:"groupBy,omitempty"`
		Aggregates []AggregateSpec `json:"aggregates,omitempty"`

		Inner     bool  `json:"inner,omitempty"`
		LeftKey   int   `json:"leftKey,omitempty"`
		Condition *Expr `json:"condition,omitempty"`
	}

	// AggregateSpec is one aggregate function over an input column. Column
	// is ignored by count(*).
	AggregateSpec struct {
		Func   string `json:"func"`
		Column int    `json:"column,omitempty"`
	}
)

// ReadFile parses the plan document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vterrors.Wrapf(err, "cannot read plan %s", path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, vterrors.Wrapf(err, "plan %s", path)
	}
	return doc, nil
}

// Parse decodes a YAML or JSON plan document. Numbers decode to int64 when
// they are integral and to float64 otherwise.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := decode(data, &doc); err != nil {
		return nil, vterrors.Wrap(err, "cannot parse plan document")
	}
	for name, entries := range doc.Maps {
		for i := range entries {
			entries[i].Key = number(entries[i].Key)
			entries[i].Value = number(entries[i].Value)
		}
		doc.Maps[name] = entries
	}
	if doc.Plan != nil {
		doc.Plan.walk(func(n *Node) {
			for _, row := range n.Rows {
				for i := range row {
					row[i] = number(row[i])
				}
			}
		})
	}
	return &doc, nil
}

// decode converts YAML to JSON and decodes it strictly into v, keeping
// numbers as json.Number.
func decode(data []byte, v any) error {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return invalid("%v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// number replaces the json.Number values of a decoded document.
func number(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, e := range v {
			v[k] = number(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = number(e)
		}
		return v
	}
	return v
}

func (n *Node) walk(f func(*Node)) {
	if n == nil {
		return
	}
	f(n)
	n.Input.walk(f)
	n.Left.walk(f)
	n.Right.walk(f)
}

// Table returns the metadata of the named table.
func (d *Document) Table(name string) (*physical.Table, error) {
	for _, spec := range d.Tables {
		if spec.Name == name {
			return spec.table()
		}
	}
	return nil, vterrors.Errorf(codes.NotFound, "table %q is not declared", name)
}

func (s TableSpec) table() (*physical.Table, error) {
	if s.Name == "" {
		return nil, invalid("table without a name")
	}
	t := &physical.Table{
		Name:      s.Name,
		Connector: s.Connector,
		MapName:   s.Map,
	}
	if t.Connector == "" {
		t.Connector = "map"
	}
	if t.MapName == "" {
		t.MapName = s.Name
	}
	var err error
	if t.KeyDescriptor, err = extract.ParseDescriptor(s.KeyDescriptor); err != nil {
		return nil, vterrors.Wrapf(err, "table %s", s.Name)
	}
	if t.ValueDescriptor, err = extract.ParseDescriptor(s.ValueDescriptor); err != nil {
		return nil, vterrors.Wrapf(err, "table %s", s.Name)
	}
	if len(s.Fields) == 0 {
		return nil, invalid("table %s has no fields", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return nil, invalid("table %s: field without a name", s.Name)
		}
		if seen[f.Name] {
			return nil, invalid("table %s: duplicate field %s", s.Name, f.Name)
		}
		seen[f.Name] = true
		typ, err := extract.ParseType(f.Type)
		if err != nil {
			return nil, vterrors.Wrapf(err, "table %s field %s", s.Name, f.Name)
		}
		path := f.Path
		if path == "" {
			path = f.Name
		}
		t.Fields = append(t.Fields, physical.TableField{Name: f.Name, Path: extract.ParsePath(path), Type: typ})
	}
	return t, nil
}

// Operator converts the plan tree. The result has no Root: the caller adds
// one carrying the query ID and the initiator member.
func (d *Document) Operator() (physical.Operator, error) {
	if d.Plan == nil {
		return nil, invalid("document has no plan")
	}
	return d.operator(d.Plan)
}

func (d *Document) operator(n *Node) (physical.Operator, error) {
	op := strings.ToLower(n.Op)
	switch op {
	case "values":
		rows := make([]sqltypes.Row, len(n.Rows))
		for i, r := range n.Rows {
			rows[i] = sqltypes.MakeRow(r...)
		}
		return &physical.Values{Rows: rows}, nil
	case "scan":
		t, err := d.Table(n.Table)
		if err != nil {
			return nil, err
		}
		filter, err := n.Filter.Compile()
		if err != nil {
			return nil, vterrors.Wrap(err, "scan filter")
		}
		projection, err := compileAll(n.Projection)
		if err != nil {
			return nil, vterrors.Wrap(err, "scan projection")
		}
		return &physical.FullScan{Table: t, Filter: filter, Projection: projection}, nil
	case "join":
		if n.Left == nil || n.Right == nil {
			return nil, invalid("join needs a left and a right input")
		}
		left, err := d.operator(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.operator(n.Right)
		if err != nil {
			return nil, err
		}
		cond, err := n.Condition.Compile()
		if err != nil {
			return nil, vterrors.Wrap(err, "join condition")
		}
		return &physical.NestedLoopJoin{
			Left:  left,
			Right: right,
			Join:  physical.JoinInfo{Inner: n.Inner, LeftEquiJoinIndex: n.LeftKey, Condition: cond},
		}, nil
	}

	if n.Input == nil {
		return nil, invalid("%s needs an input", n.Op)
	}
	input, err := d.operator(n.Input)
	if err != nil {
		return nil, err
	}
	switch op {
	case "insert":
		t, err := d.Table(n.Table)
		if err != nil {
			return nil, err
		}
		return &physical.Insert{Input: input, Table: t}, nil
	case "filter":
		if n.Filter == nil {
			return nil, invalid("filter needs a predicate")
		}
		pred, err := n.Filter.Compile()
		if err != nil {
			return nil, vterrors.Wrap(err, "filter")
		}
		return &physical.Filter{Input: input, Predicate: pred}, nil
	case "project":
		projection, err := compileAll(n.Projection)
		if err != nil {
			return nil, vterrors.Wrap(err, "projection")
		}
		return &physical.Project{Input: input, Projection: projection}, nil
	}

	agg, err := n.aggregation()
	if err != nil {
		return nil, err
	}
	switch op {
	case "aggregate":
		return &physical.Aggregate{Input: input, Aggregation: agg}, nil
	case "aggregatebykey":
		return &physical.AggregateByKey{Input: input, Aggregation: agg}, nil
	case "accumulate":
		return &physical.Accumulate{Input: input, Aggregation: agg}, nil
	case "accumulatebykey":
		return &physical.AccumulateByKey{Input: input, Aggregation: agg}, nil
	case "combine":
		return &physical.Combine{Input: input, Aggregation: agg}, nil
	case "combinebykey":
		return &physical.CombineByKey{Input: input, Aggregation: agg}, nil
	}
	return nil, invalid("unknown operator %q", n.Op)
}

func (n *Node) aggregation() (aggregation.Operation, error) {
	var op aggregation.Operation
	for _, c := range n.GroupBy {
		if c < 0 {
			return op, invalid("%s: negative group column %d", n.Op, c)
		}
	}
	op.GroupColumns = n.GroupBy
	for _, a := range n.Aggregates {
		f, err := aggregation.ParseFunc(a.Func)
		if err != nil {
			return op, vterrors.Wrap(err, n.Op)
		}
		if a.Column < 0 {
			return op, invalid("%s: negative column %d", n.Op, a.Column)
		}
		op.Aggregates = append(op.Aggregates, aggregation.Aggregate{Func: f, Column: a.Column})
	}
	return op, nil
}

// Seed writes the entries of Maps to the cluster, map by map in name order.
func (d *Document) Seed(ctx context.Context, cluster kvstore.Cluster) error {
	names := make([]string, 0, len(d.Maps))
	for name := range d.Maps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		store, err := cluster.Map(name)
		if err != nil {
			return err
		}
		for _, e := range d.Maps[name] {
			if e.Key == nil {
				return invalid("map %s: entry without a key", name)
			}
			if err := store.Put(ctx, e.Key, e.Value); err != nil {
				return vterrors.Wrapf(err, "map %s", name)
			}
		}
	}
	return nil
}
