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
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
	"vtflow.io/vtflow/go/vt/vtflow/projector"
)

// EnrichmentJoinSupplier joins every input row with the entry of MapName
// whose key is the row's equi-join column. Each instance keeps at most
// MaxConcurrentOps lookups in flight and emits its output in input order.
type EnrichmentJoinSupplier struct {
	Join    physical.JoinInfo
	MapName string
	// Right projects the looked-up entry to the right-side row.
	Right *projector.Supplier
	// MaxConcurrentOps overrides --join-max-concurrent-ops when positive.
	MaxConcurrentOps int
}

var _ dag.ProcessorSupplier = (*EnrichmentJoinSupplier)(nil)

// Get implements dag.ProcessorSupplier.
func (s *EnrichmentJoinSupplier) Get(pctx *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	if pctx.Stores == nil {
		return nil, vterrors.LookupError(fmt.Errorf("no key-value store on member %s", pctx.Member), s.MapName)
	}
	store, err := pctx.Stores.Map(s.MapName)
	if err != nil {
		return nil, vterrors.LookupError(err, s.MapName)
	}
	if err := s.Right.Validate(); err != nil {
		return nil, err
	}
	window := s.MaxConcurrentOps
	if window <= 0 {
		window = MaxConcurrentOps()
	}
	joinFn := evalengine.JoinFn(s.Join.Condition)

	out := make([]dag.Processor, count)
	for i := range out {
		out[i] = &enrichmentJoin{
			join:   s.Join,
			name:   s.MapName,
			store:  store,
			right:  s.Right,
			joinFn: joinFn,
			window: window,
		}
	}
	return out, nil
}

type enrichmentJoin struct {
	join   physical.JoinInfo
	name   string
	store  kvstore.Store
	right  *projector.Supplier
	joinFn func(left, right sqltypes.Row) (sqltypes.Row, error)
	window int

	projector *projector.Projector
}

func (j *enrichmentJoin) Process(ctx context.Context, inbox <-chan sqltypes.Row, emit dag.Emitter) error {
	p, err := j.right.Acquire()
	if err != nil {
		return err
	}
	j.projector = p
	defer func() {
		j.right.Release(p)
		j.projector = nil
	}()

	async := &OrderedAsync{Window: j.window, Fn: j.lookup}
	return async.Process(ctx, inbox, emit)
}

// lookup starts the lookup of one left row.
func (j *enrichmentJoin) lookup(ctx context.Context, left sqltypes.Row) (Completion, error) {
	idx := j.join.LeftEquiJoinIndex
	if idx < 0 || idx >= len(left) {
		return nil, vterrors.EvaluationError(fmt.Errorf("join column %d out of range for row of arity %d", idx, len(left)))
	}
	key := left[idx]
	if key == nil {
		joinNullKeys.Add(1)
		return Completed(j.miss(left), nil), nil
	}

	span, spanCtx := opentracing.StartSpanFromContext(ctx, "EnrichmentJoin.Lookup")
	span.SetTag("map", j.name)
	joinLookups.Add(1)
	joinLookupsFlight.Add(1)
	return &lookupCompletion{
		join:   j,
		left:   left,
		future: j.store.GetAsync(spanCtx, key),
		span:   span,
	}, nil
}

// miss returns the output for a left row without a matching right row.
func (j *enrichmentJoin) miss(left sqltypes.Row) sqltypes.Row {
	if j.join.Inner {
		return nil
	}
	return sqltypes.PadRight(left, j.right.ColumnCount())
}

type lookupCompletion struct {
	join   *enrichmentJoin
	left   sqltypes.Row
	future *kvstore.Future
	span   opentracing.Span
	closed bool
}

func (c *lookupCompletion) Done() <-chan struct{} {
	return c.future.Done()
}

func (c *lookupCompletion) finish() {
	if c.closed {
		return
	}
	c.closed = true
	joinLookupsFlight.Add(-1)
	c.span.Finish()
}

func (c *lookupCompletion) Discard() {
	c.finish()
}

func (c *lookupCompletion) Result() (sqltypes.Row, error) {
	defer c.finish()
	j := c.join
	value, err := c.future.Result()
	if err != nil {
		joinLookupErrors.Add(1)
		ext.Error.Set(c.span, true)
		log.Warningf("enrichment join lookup in map %s failed: %v", j.name, err)
		return nil, vterrors.LookupError(err, j.name)
	}
	if value == nil {
		return j.miss(c.left), nil
	}
	right, err := j.projector.Project(c.left[j.join.LeftEquiJoinIndex], value)
	if err != nil {
		return nil, err
	}
	if right == nil {
		return j.miss(c.left), nil
	}
	joined, err := j.joinFn(c.left, right)
	if err != nil {
		return nil, vterrors.EvaluationError(err)
	}
	if joined == nil {
		return j.miss(c.left), nil
	}
	return joined, nil
}
