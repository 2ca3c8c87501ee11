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
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
)

// Cursor is the result of a running query. Rows are delivered in the order
// the client sink received them.
type Cursor struct {
	queryID string
	cancel  context.CancelFunc

	rows chan sqltypes.Row
	// done is closed once every instance of the query finished; err is the
	// query error, if any.
	done chan struct{}
	err  error

	closeOnce sync.Once
	iterated  atomic.Bool
}

var _ dag.ResultConsumer = (*Cursor)(nil)

func newCursor(queryID string, cancel context.CancelFunc) *Cursor {
	return &Cursor{
		queryID: queryID,
		cancel:  cancel,
		rows:    make(chan sqltypes.Row, edgeBufferSize),
		done:    make(chan struct{}),
	}
}

// QueryID returns the ID of the query.
func (c *Cursor) QueryID() string {
	return c.queryID
}

// Consume implements dag.ResultConsumer. It blocks while the client is not
// reading.
func (c *Cursor) Consume(ctx context.Context, row sqltypes.Row) error {
	select {
	case c.rows <- row:
		return nil
	case <-ctx.Done():
		return vterrors.Canceled(ctx)
	}
}

func (c *Cursor) finish(err error) {
	c.err = err
	close(c.done)
}

// Next returns the next row. It returns io.EOF after the last row, or the
// error that stopped the query.
func (c *Cursor) Next(ctx context.Context) (sqltypes.Row, error) {
	// rows already buffered are delivered before the end of the query is
	// reported
	select {
	case row := <-c.rows:
		return row, nil
	default:
	}
	select {
	case row := <-c.rows:
		return row, nil
	case <-c.done:
		select {
		case row := <-c.rows:
			return row, nil
		default:
		}
		if c.err != nil {
			return nil, c.err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, vterrors.Canceled(ctx)
	}
}

// Rows returns an iterator over the remaining rows. The iterator stops after
// yielding an error. It can be requested only once.
func (c *Cursor) Rows(ctx context.Context) (iter.Seq2[sqltypes.Row, error], error) {
	if !c.iterated.CompareAndSwap(false, true) {
		return nil, vterrors.Errorf(codes.FailedPrecondition, "the rows of query %s can be iterated only once", c.queryID)
	}
	return func(yield func(sqltypes.Row, error) bool) {
		for {
			row, err := c.Next(ctx)
			if err == io.EOF {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}, nil
}

// ReadAll returns every remaining row of the result.
func (c *Cursor) ReadAll(ctx context.Context) ([]sqltypes.Row, error) {
	rows, err := c.Rows(ctx)
	if err != nil {
		return nil, err
	}
	var out []sqltypes.Row
	for row, err := range rows {
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Close cancels the query if it is still running and waits for it to stop.
func (c *Cursor) Close() error {
	c.closeOnce.Do(c.cancel)
	<-c.done
	return nil
}

// Done is closed once the query stopped.
func (c *Cursor) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the query. It is only meaningful once
// Done is closed.
func (c *Cursor) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}
