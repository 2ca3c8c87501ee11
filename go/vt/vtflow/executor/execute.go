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

package executor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"golang.org/x/sync/errgroup"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
)

// instance is one running copy of a vertex.
type instance struct {
	vertex    *dag.Vertex
	member    string
	processor dag.Processor
	inbox     chan sqltypes.Row
	emit      dag.Emitter
}

// vertexInstances holds the instances of one vertex, in global index order.
type vertexInstances struct {
	vertex    *dag.Vertex
	all       []*instance
	byMember  map[string][]*instance
	producers atomic.Int32
}

func (vi *vertexInstances) closeInboxes() {
	for _, inst := range vi.all {
		close(inst.inbox)
	}
}

// Execute starts the graph and returns the cursor over its result. The
// query runs until the result is consumed, it fails, ctx is done or the
// cursor is closed. An empty queryID is replaced by a random one.
func (c *Cluster) Execute(ctx context.Context, g *dag.Graph, queryID string) (*Cursor, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if queryID == "" {
		queryID = uuid.NewString()
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "Cluster.Execute")
	span.SetTag("query_id", queryID)
	queryCtx, cancel := context.WithCancel(ctx)
	cursor := newCursor(queryID, cancel)
	if err := c.register(queryID, cursor); err != nil {
		cancel()
		span.Finish()
		return nil, err
	}

	instances, err := c.instantiate(queryID, g)
	if err != nil {
		c.unregister(queryID)
		cancel()
		ext.Error.Set(span, true)
		span.Finish()
		return nil, err
	}

	queriesExecuted.Add(1)
	queriesActive.Add(1)
	count := 0
	for _, vi := range instances {
		count += len(vi.all)
	}
	log.Infof("query %s started: %d vertices, %d instances on %d members", queryID, len(instances), count, len(c.members))

	eg, egCtx := errgroup.WithContext(queryCtx)
	for _, v := range g.Vertices() {
		vi := instances[v.ID]
		downstream := c.downstream(g, v, instances)
		for _, inst := range vi.all {
			eg.Go(func() error {
				defer c.producerDone(downstream)
				if err := inst.processor.Process(egCtx, inst.inbox, inst.emit); err != nil {
					return err
				}
				// rows sent after the processor stopped reading are dropped
				for range inst.inbox {
				}
				return nil
			})
		}
	}

	go func() {
		err := eg.Wait()
		cancel()
		c.unregister(queryID)
		queriesActive.Add(-1)
		switch {
		case err == nil:
			log.Infof("query %s finished", queryID)
		case vterrors.ErrState(err) == vterrors.QueryInterrupted:
			log.Infof("query %s interrupted", queryID)
		default:
			queryErrors.Add(1)
			ext.Error.Set(span, true)
			log.Warningf("query %s failed: %v", queryID, err)
		}
		span.Finish()
		cursor.finish(err)
	}()
	return cursor, nil
}

// instantiate creates the instances of every vertex and wires their emitters.
func (c *Cluster) instantiate(queryID string, g *dag.Graph) ([]*vertexInstances, error) {
	instances := make([]*vertexInstances, len(g.Vertices()))
	for _, v := range g.Vertices() {
		vi, err := c.newInstances(queryID, v)
		if err != nil {
			return nil, vterrors.Wrapf(err, "vertex %s", v.Name)
		}
		instances[v.ID] = vi
	}

	for _, v := range g.Vertices() {
		vi := instances[v.ID]
		if len(g.Inbound(v)) == 0 {
			vi.closeInboxes()
		}
		for _, e := range g.Inbound(v) {
			vi.producers.Add(int32(len(instances[e.From.ID].all)))
		}

		out := g.Outbound(v)
		for _, inst := range vi.all {
			if len(out) == 0 {
				inst.emit = rootEmitter(v)
				continue
			}
			inst.emit = c.emitter(inst, out[0], instances[out[0].To.ID])
		}
	}
	return instances, nil
}

// newInstances creates the processors of a vertex on every member hosting it.
func (c *Cluster) newInstances(queryID string, v *dag.Vertex) (*vertexInstances, error) {
	vi := &vertexInstances{vertex: v, byMember: make(map[string][]*instance)}

	type share struct {
		member string
		base   int
		count  int
	}
	var shares []share
	total := 1
	if v.Placement.Kind == dag.SingleInstance {
		if _, err := c.memberIndex(v.Placement.Member); err != nil {
			return nil, err
		}
		shares = []share{{member: v.Placement.Member, count: 1}}
	} else {
		total = len(c.members) * c.parallelism
		for i, m := range c.members {
			shares = append(shares, share{member: m, base: i * c.parallelism, count: c.parallelism})
		}
	}

	for _, s := range shares {
		pctx := &dag.ProcessorContext{
			QueryID:          queryID,
			Member:           s.member,
			BaseIndex:        s.base,
			TotalParallelism: total,
			Stores:           c.stores,
			Results:          c,
		}
		procs, err := v.Supplier.Get(pctx, s.count)
		if err != nil {
			return nil, err
		}
		if len(procs) != s.count {
			return nil, vterrors.VT13001(fmt.Sprintf("supplier of %s returned %d processors, %d requested", v.Name, len(procs), s.count))
		}
		for _, p := range procs {
			inst := &instance{
				vertex:    v,
				member:    s.member,
				processor: p,
				inbox:     make(chan sqltypes.Row, edgeBufferSize),
			}
			vi.all = append(vi.all, inst)
			vi.byMember[s.member] = append(vi.byMember[s.member], inst)
		}
	}
	return vi, nil
}

// downstream returns the instances fed by v, if any.
func (c *Cluster) downstream(g *dag.Graph, v *dag.Vertex, instances []*vertexInstances) *vertexInstances {
	out := g.Outbound(v)
	if len(out) == 0 {
		return nil
	}
	return instances[out[0].To.ID]
}

// producerDone records that one upstream instance of vi finished. The inboxes
// of vi are closed once every upstream instance finished.
func (c *Cluster) producerDone(vi *vertexInstances) {
	if vi == nil {
		return
	}
	if vi.producers.Add(-1) == 0 {
		vi.closeInboxes()
	}
}

// emitter returns the function routing the rows of producer along e.
func (c *Cluster) emitter(producer *instance, e *dag.Edge, target *vertexInstances) dag.Emitter {
	label := producer.vertex.Label
	send := func(ctx context.Context, to *instance, row sqltypes.Row) error {
		select {
		case to.inbox <- row:
			rowsEmitted.Add(label, 1)
			return nil
		case <-ctx.Done():
			return vterrors.Canceled(ctx)
		}
	}
	missing := func() error {
		return vterrors.VT13001(fmt.Sprintf("edge %s has no destination instance on %s", e, producer.member))
	}

	policy := e.Policy
	switch policy.Kind {
	case dag.AllToOnePolicy:
		dest := target.byMember[policy.Member]
		return func(ctx context.Context, row sqltypes.Row) error {
			if len(dest) == 0 {
				return missing()
			}
			return send(ctx, dest[0], row)
		}
	case dag.PartitionedPolicy:
		dest := target.byMember[producer.member]
		if policy.Distributed {
			dest = target.all
		}
		return func(ctx context.Context, row sqltypes.Row) error {
			if len(dest) == 0 {
				return missing()
			}
			key, err := policy.KeyFn(row)
			if err != nil {
				return vterrors.EvaluationError(err)
			}
			return send(ctx, dest[dag.PartitionOf(key, len(dest))], row)
		}
	default:
		dest := target.byMember[producer.member]
		next := 0
		return func(ctx context.Context, row sqltypes.Row) error {
			if len(dest) == 0 {
				return missing()
			}
			to := dest[next%len(dest)]
			next++
			return send(ctx, to, row)
		}
	}
}

func rootEmitter(v *dag.Vertex) dag.Emitter {
	return func(context.Context, sqltypes.Row) error {
		return vterrors.VT13001(fmt.Sprintf("root vertex %s emitted a row", v.Name))
	}
}
