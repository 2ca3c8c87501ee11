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

// Package mapconnector serves tables stored in key-value maps: every entry
// of the map is a row, its fields extracted from the entry key and value.
package mapconnector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/connector"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/engine"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
	"vtflow.io/vtflow/go/vt/vtflow/extract"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
	"vtflow.io/vtflow/go/vt/vtflow/projector"
)

// TypeName is the connector type of map-backed tables.
const TypeName = "map"

// Connector is the map connector. It is stateless: the maps are opened
// through the stores of the member running each vertex.
type Connector struct {
	// MaxConcurrentOps overrides the lookup window of the joins it creates.
	MaxConcurrentOps int
}

var _ connector.Connector = (*Connector)(nil)

// New returns a map connector.
func New() *Connector {
	return &Connector{}
}

// TypeName implements connector.Connector.
func (*Connector) TypeName() string {
	return TypeName
}

// FullScanReader implements connector.Connector. Every instance of the reader
// scans the whole map and keeps the entries of its own partition.
func (c *Connector) FullScanReader(g *dag.Graph, table *physical.Table, filter evalengine.Expr, projection []evalengine.Expr) (*dag.Vertex, error) {
	rows := projector.NewSupplier(table, filter, projection)
	if err := rows.Validate(); err != nil {
		return nil, vterrors.Wrapf(err, "table %s", table.Name)
	}
	supplier := &scanSupplier{mapName: table.MapName, rows: rows}
	return g.NewUniqueVertex("Scan("+table.Name+")", physical.FullScanKind.String(), supplier, dag.ParallelPlacement()), nil
}

// Sink implements connector.Connector. Input rows hold the table fields in
// declaration order.
func (c *Connector) Sink(g *dag.Graph, table *physical.Table) (*dag.Vertex, error) {
	enc, err := newEntryEncoder(table)
	if err != nil {
		return nil, err
	}
	supplier := &sinkSupplier{mapName: table.MapName, enc: enc}
	return g.NewUniqueVertex("Sink("+table.Name+")", physical.InsertKind.String(), supplier, dag.ParallelPlacement()), nil
}

// NestedLoopReader implements connector.Connector. The left rows are joined
// by looking up their equi-join column as a key of the map, on the member
// that produced them.
func (c *Connector) NestedLoopReader(g *dag.Graph, table *physical.Table, filter evalengine.Expr, projection []evalengine.Expr, join physical.JoinInfo) (connector.NestedLoopJoin, error) {
	if join.LeftEquiJoinIndex < 0 {
		return connector.NestedLoopJoin{}, vterrors.VT13001(fmt.Sprintf("join with table %s has no equi-join column", table.Name))
	}
	right := projector.NewSupplier(table, filter, projection)
	if err := right.Validate(); err != nil {
		return connector.NestedLoopJoin{}, vterrors.Wrapf(err, "table %s", table.Name)
	}
	supplier := &engine.EnrichmentJoinSupplier{
		Join:             join,
		MapName:          table.MapName,
		Right:            right,
		MaxConcurrentOps: c.MaxConcurrentOps,
	}
	v := g.NewUniqueVertex("Join("+table.Name+")", physical.NestedLoopJoinKind.String(), supplier, dag.ParallelPlacement())
	return connector.NestedLoopJoin{Vertex: v}, nil
}

func openMap(pctx *dag.ProcessorContext, name string) (kvstore.Store, error) {
	if pctx.Stores == nil {
		return nil, vterrors.LookupError(fmt.Errorf("no key-value store on member %s", pctx.Member), name)
	}
	store, err := pctx.Stores.Map(name)
	if err != nil {
		return nil, vterrors.LookupError(err, name)
	}
	return store, nil
}

type scanSupplier struct {
	mapName string
	rows    *projector.Supplier
}

func (*scanSupplier) IsSource() bool { return true }

func (s *scanSupplier) Get(pctx *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	store, err := openMap(pctx, s.mapName)
	if err != nil {
		return nil, err
	}
	total := max(pctx.TotalParallelism, count)
	out := make([]dag.Processor, count)
	for i := range out {
		partition := pctx.BaseIndex + i
		out[i] = dag.ProcessorFunc(func(ctx context.Context, _ <-chan sqltypes.Row, emit dag.Emitter) error {
			p, err := s.rows.Acquire()
			if err != nil {
				return err
			}
			defer s.rows.Release(p)

			err = store.Scan(ctx, func(key, value any) error {
				if dag.PartitionOf(kvstore.KeyString(key), total) != partition {
					return nil
				}
				row, err := p.Project(key, value)
				if err != nil || row == nil {
					return err
				}
				return emit(ctx, row)
			})
			if err != nil && vterrors.ErrState(err) == vterrors.Undefined {
				if ctx.Err() != nil {
					return vterrors.Canceled(ctx)
				}
				return vterrors.LookupError(err, s.mapName)
			}
			return err
		})
	}
	return out, nil
}

type sinkSupplier struct {
	mapName string
	enc     *entryEncoder
}

func (s *sinkSupplier) Get(pctx *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	store, err := openMap(pctx, s.mapName)
	if err != nil {
		return nil, err
	}
	out := make([]dag.Processor, count)
	for i := range out {
		out[i] = dag.ProcessorFunc(func(ctx context.Context, inbox <-chan sqltypes.Row, _ dag.Emitter) error {
			for {
				select {
				case <-ctx.Done():
					return vterrors.Canceled(ctx)
				case row, ok := <-inbox:
					if !ok {
						return nil
					}
					key, value, err := s.enc.encode(row)
					if err != nil {
						return err
					}
					if err := store.Put(ctx, key, value); err != nil {
						return vterrors.LookupError(err, s.mapName)
					}
				}
			}
		})
	}
	return out, nil
}

// entryEncoder turns a row of the table fields back into a map entry.
type entryEncoder struct {
	table    *physical.Table
	keyField int
	// valueField is the field holding the whole value of a primitive value.
	valueField int
	json       bool
}

func newEntryEncoder(table *physical.Table) (*entryEncoder, error) {
	enc := &entryEncoder{table: table, keyField: table.KeyField(), valueField: -1}
	if enc.keyField < 0 {
		return nil, vterrors.Errorf(codes.InvalidArgument, "cannot insert into table %s: no field holds the entry key", table.Name)
	}
	switch table.ValueDescriptor.(type) {
	case nil, extract.PrimitiveDescriptor:
		for i, f := range table.Fields {
			if !f.Path.IsKey && f.Path.IsThis() {
				enc.valueField = i
			}
		}
		if enc.valueField < 0 {
			return nil, vterrors.Errorf(codes.InvalidArgument, "cannot insert into table %s: no field holds the entry value", table.Name)
		}
	case extract.JSONDescriptor:
		enc.json = true
	case extract.MapDescriptor:
	default:
		return nil, vterrors.Errorf(codes.Unimplemented, "cannot insert into table %s: unsupported value descriptor %s", table.Name, table.ValueDescriptor)
	}
	return enc, nil
}

func (e *entryEncoder) encode(row sqltypes.Row) (key, value any, err error) {
	if len(row) != len(e.table.Fields) {
		return nil, nil, vterrors.VT13001(fmt.Sprintf("row of arity %d inserted into table %s of %d fields", len(row), e.table.Name, len(e.table.Fields)))
	}
	key = row[e.keyField]
	if key == nil {
		return nil, nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "cannot insert a NULL key into table %s", e.table.Name)
	}
	if e.valueField >= 0 {
		return key, row[e.valueField], nil
	}

	obj := make(map[string]any)
	for i, f := range e.table.Fields {
		if f.Path.IsKey || f.Path.IsThis() {
			continue
		}
		if err := setPath(obj, f.Path.Path, row[i]); err != nil {
			return nil, nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "field %s: %v", f.Name, err)
		}
	}
	if !e.json {
		return key, obj, nil
	}
	buf, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, vterrors.EvaluationError(err)
	}
	return key, string(buf), nil
}

// setPath stores v under a dotted path, creating the intermediate objects.
func setPath(obj map[string]any, path string, v any) error {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := obj[p]
		if !ok {
			child := make(map[string]any)
			obj[p] = child
			obj = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is not an object", p)
		}
		obj = child
	}
	obj[parts[len(parts)-1]] = v
	return nil
}
