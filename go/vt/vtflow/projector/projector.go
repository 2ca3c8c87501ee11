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

// Package projector turns key-value entries into rows: it binds the entry to
// lazy field extractors, evaluates a predicate and computes a projection.
package projector

import (
	"sync"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
	"vtflow.io/vtflow/go/vt/vtflow/extract"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
)

// Projector projects one entry at a time. It is not safe for concurrent use;
// obtain one per goroutine from a Supplier.
type Projector struct {
	keyTarget   extract.Target
	valueTarget extract.Target
	extractors  []extract.Extractor
	predicate   evalengine.Expr
	projection  []evalengine.Expr

	// values caches the fields decoded for the current entry.
	values []any
	loaded []bool
}

var _ evalengine.Env = (*Projector)(nil)

// Column implements evalengine.Env. Field i is decoded the first time it is
// read for the current entry.
func (p *Projector) Column(i int) (any, error) {
	if i < 0 || i >= len(p.extractors) {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "field %d out of range, the entry has %d fields", i, len(p.extractors))
	}
	if p.loaded[i] {
		return p.values[i], nil
	}
	v, err := p.extractors[i].Get()
	if err != nil {
		return nil, err
	}
	p.values[i] = v
	p.loaded[i] = true
	return v, nil
}

// Project returns the projected row of the entry, or nil when the predicate
// is not true for it. Failures are evaluation errors.
func (p *Projector) Project(key, value any) (sqltypes.Row, error) {
	p.keyTarget.SetTarget(key)
	p.valueTarget.SetTarget(value)
	clear(p.loaded)

	ok, err := evalengine.EvaluateBool(p.predicate, p)
	if err != nil {
		return nil, vterrors.EvaluationError(err)
	}
	if !ok {
		return nil, nil
	}
	row, err := evalengine.Project(p.projection, p)
	if err != nil {
		return nil, vterrors.EvaluationError(err)
	}
	return row, nil
}

// ColumnCount returns the arity of the projected rows.
func (p *Projector) ColumnCount() int {
	return len(p.projection)
}

func (p *Projector) reset() {
	p.keyTarget.SetTarget(nil)
	p.valueTarget.SetTarget(nil)
	clear(p.values)
	clear(p.loaded)
}

// Supplier creates projectors for one table and one predicate/projection
// pair. It is safe for concurrent use.
type Supplier struct {
	fields          []physical.TableField
	keyDescriptor   extract.Descriptor
	valueDescriptor extract.Descriptor
	predicate       evalengine.Expr
	projection      []evalengine.Expr

	pool sync.Pool
}

// NewSupplier returns a Supplier projecting entries of table. predicate may be
// nil (every entry passes). A nil projection selects every field in order.
func NewSupplier(table *physical.Table, predicate evalengine.Expr, projection []evalengine.Expr) *Supplier {
	if projection == nil {
		projection = make([]evalengine.Expr, len(table.Fields))
		for i := range table.Fields {
			projection[i] = evalengine.NewColumn(i)
		}
	}
	keyDescriptor, valueDescriptor := table.KeyDescriptor, table.ValueDescriptor
	if keyDescriptor == nil {
		keyDescriptor = extract.PrimitiveDescriptor{}
	}
	if valueDescriptor == nil {
		valueDescriptor = extract.PrimitiveDescriptor{}
	}
	return &Supplier{
		fields:          table.Fields,
		keyDescriptor:   keyDescriptor,
		valueDescriptor: valueDescriptor,
		predicate:       predicate,
		projection:      projection,
	}
}

// New creates a projector, building one extractor per field.
func (s *Supplier) New() (*Projector, error) {
	p := &Projector{
		keyTarget:   s.keyDescriptor.NewTarget(),
		valueTarget: s.valueDescriptor.NewTarget(),
		extractors:  make([]extract.Extractor, len(s.fields)),
		predicate:   s.predicate,
		projection:  s.projection,
		values:      make([]any, len(s.fields)),
		loaded:      make([]bool, len(s.fields)),
	}
	for i, f := range s.fields {
		target := p.valueTarget
		if f.Path.IsKey {
			target = p.keyTarget
		}
		ex, err := target.CreateExtractor(f.Path.Path, f.Type)
		if err != nil {
			return nil, vterrors.Wrapf(err, "field %s", f.Name)
		}
		p.extractors[i] = ex
	}
	return p, nil
}

// Acquire returns a pooled projector, creating one if the pool is empty.
func (s *Supplier) Acquire() (*Projector, error) {
	if p, ok := s.pool.Get().(*Projector); ok {
		return p, nil
	}
	return s.New()
}

// Release returns a projector obtained from Acquire to the pool.
func (s *Supplier) Release(p *Projector) {
	if p == nil {
		return
	}
	p.reset()
	s.pool.Put(p)
}

// ColumnCount returns the arity of the projected rows.
func (s *Supplier) ColumnCount() int {
	return len(s.projection)
}

// Validate checks that projectors can be built for the table.
func (s *Supplier) Validate() error {
	_, err := s.New()
	return err
}
