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

	"github.com/gammazero/deque"
	"golang.org/x/sync/semaphore"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
)

// Completion is the pending output of one input row of an ordered async
// transform: zero or one row.
type Completion interface {
	// Done is closed once Result can be called.
	Done() <-chan struct{}
	// Result returns the output row, nil for none. It is called once, from
	// the processor goroutine.
	Result() (sqltypes.Row, error)
	// Discard releases a completion whose result will never be read.
	Discard()
}

// AsyncFn starts the work for one input row.
type AsyncFn func(ctx context.Context, row sqltypes.Row) (Completion, error)

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type completed struct {
	row sqltypes.Row
	err error
}

// Completed returns a Completion that is already done.
func Completed(row sqltypes.Row, err error) Completion {
	return &completed{row: row, err: err}
}

func (c *completed) Done() <-chan struct{}         { return closedChan }
func (c *completed) Result() (sqltypes.Row, error) { return c.row, c.err }
func (c *completed) Discard()                      {}

// OrderedAsync is a processor that applies an asynchronous function to every
// input row, with at most Window rows in flight, and emits the results in
// input order.
type OrderedAsync struct {
	Window int
	Fn     AsyncFn
}

var _ dag.Processor = (*OrderedAsync)(nil)

// Process implements dag.Processor. The window is a semaphore of Window
// slots: a slot is taken before the function starts and given back once the
// row's output was emitted. Completed rows wait in a FIFO queue until every
// row before them was emitted.
func (p *OrderedAsync) Process(ctx context.Context, inbox <-chan sqltypes.Row, emit dag.Emitter) (err error) {
	window := max(p.Window, 1)
	sem := semaphore.NewWeighted(int64(window))
	var queue deque.Deque[Completion]
	defer func() {
		for queue.Len() > 0 {
			queue.PopFront().Discard()
		}
	}()

	for {
		// cancellation is checked before anything else, so that no new
		// work starts once it was observed
		if ctx.Err() != nil {
			return vterrors.Canceled(ctx)
		}

		// emit every completed row at the head of the queue
		for queue.Len() > 0 && isDone(queue.Front()) {
			head := queue.PopFront()
			sem.Release(1)
			row, err := head.Result()
			if err != nil {
				return err
			}
			if row != nil {
				if err := emit(ctx, row); err != nil {
					return err
				}
			}
		}

		var in <-chan sqltypes.Row
		if inbox != nil && sem.TryAcquire(1) {
			in = inbox
		}
		var headDone <-chan struct{}
		if queue.Len() > 0 {
			headDone = queue.Front().Done()
		}
		if in == nil && headDone == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			if in != nil {
				sem.Release(1)
			}
			return vterrors.Canceled(ctx)
		case <-headDone:
			if in != nil {
				sem.Release(1)
			}
		case row, ok := <-in:
			if !ok {
				inbox = nil
				sem.Release(1)
				continue
			}
			c, err := p.Fn(ctx, row)
			if err != nil {
				sem.Release(1)
				return err
			}
			queue.PushBack(c)
		}
	}
}

func isDone(c Completion) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}
