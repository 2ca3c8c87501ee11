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
	"sync"
	"testing"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

// lookupCall is one GetAsync call seen by the fake store.
type lookupCall struct {
	key      any
	complete func(value any, err error)
}

// fakeStore hands every lookup to the test through calls, unless resolve is
// set, in which case lookups complete immediately with its result.
type fakeStore struct {
	mu       sync.Mutex
	log      []any
	inFlight int
	maxSeen  int

	resolve func(key any) (any, error)
	calls   chan lookupCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: make(chan lookupCall, 100)}
}

func (f *fakeStore) Get(ctx context.Context, key any) (any, error) {
	return f.GetAsync(ctx, key).Wait(ctx)
}

func (f *fakeStore) GetAsync(_ context.Context, key any) *kvstore.Future {
	f.mu.Lock()
	f.log = append(f.log, key)
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	f.mu.Unlock()

	done := func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}
	if f.resolve != nil {
		defer done()
		return kvstore.Resolved(f.resolve(key))
	}
	future, complete := kvstore.Pending()
	f.calls <- lookupCall{key: key, complete: func(value any, err error) {
		done()
		complete(value, err)
	}}
	return future
}

func (f *fakeStore) Put(context.Context, any, any) error {
	return nil
}

func (f *fakeStore) Scan(context.Context, func(key, value any) error) error {
	return nil
}

func (f *fakeStore) lookups() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.log...)
}

func (f *fakeStore) maxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSeen
}

// fakeCluster serves the same fake store for every map name.
type fakeCluster struct {
	store kvstore.Store
}

func (c *fakeCluster) Map(string) (kvstore.Store, error) { return c.store, nil }
func (c *fakeCluster) Close() error                      { return nil }

// collector gathers emitted rows.
type collector struct {
	mu   sync.Mutex
	rows []sqltypes.Row
}

func (c *collector) emit(_ context.Context, row sqltypes.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
	return nil
}

func (c *collector) Consume(ctx context.Context, row sqltypes.Row) error {
	return c.emit(ctx, row)
}

func (c *collector) get() []sqltypes.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sqltypes.Row(nil), c.rows...)
}

// feed returns an inbox that yields rows and is then closed.
func feed(rows ...sqltypes.Row) <-chan sqltypes.Row {
	inbox := make(chan sqltypes.Row, len(rows))
	for _, r := range rows {
		inbox <- r
	}
	close(inbox)
	return inbox
}

// runAll runs the only processor of a supplier over rows.
func runAll(t *testing.T, ctx context.Context, s dag.ProcessorSupplier, pctx *dag.ProcessorContext, rows ...sqltypes.Row) ([]sqltypes.Row, error) {
	t.Helper()
	if pctx == nil {
		pctx = &dag.ProcessorContext{TotalParallelism: 1}
	}
	procs, err := s.Get(pctx, 1)
	if err != nil {
		return nil, err
	}
	var c collector
	err = procs[0].Process(ctx, feed(rows...), c.emit)
	return c.get(), err
}
