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

package kvstore

import (
	"context"
)

// Future is the pending result of an asynchronous lookup.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// NewFuture runs fn in its own goroutine and returns a Future completed with
// its result. fn must honour ctx so that abandoned lookups terminate.
func NewFuture(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a completed Future.
func Resolved(value any, err error) *Future {
	f := &Future{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Pending returns a Future completed later through the returned function.
// The function may be called once.
func Pending() (*Future, func(value any, err error)) {
	f := &Future{done: make(chan struct{})}
	return f, func(value any, err error) {
		f.value, f.err = value, err
		close(f.done)
	}
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the result of a completed Future. It must only be called
// after Done is closed.
func (f *Future) Result() (any, error) {
	return f.value, f.err
}
