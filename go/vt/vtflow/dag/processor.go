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

package dag

import (
	"context"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

type (
	// Emitter hands one row to the outbound edge of a vertex. It blocks while
	// the edge is full and fails once ctx is done.
	Emitter func(ctx context.Context, row sqltypes.Row) error

	// Processor is one running instance of a vertex. Process reads the inbox
	// until it is closed and emits its output; it returns when it has emitted
	// everything. Source vertices get an inbox that is already closed.
	Processor interface {
		Process(ctx context.Context, inbox <-chan sqltypes.Row, emit Emitter) error
	}

	// ProcessorFunc adapts a function to the Processor interface.
	ProcessorFunc func(ctx context.Context, inbox <-chan sqltypes.Row, emit Emitter) error

	// ProcessorSupplier creates the instances of a vertex on one member.
	ProcessorSupplier interface {
		Get(pctx *ProcessorContext, count int) ([]Processor, error)
	}

	// ProcessorContext describes where the instances of a vertex run.
	ProcessorContext struct {
		QueryID string
		Member  string
		// BaseIndex is the cluster-wide index of the first local instance and
		// TotalParallelism the number of instances of the vertex in the cluster.
		BaseIndex        int
		TotalParallelism int
		Stores           kvstore.Cluster
		Results          ResultRegistry
	}

	// ResultConsumer receives the rows of a query result.
	ResultConsumer interface {
		Consume(ctx context.Context, row sqltypes.Row) error
	}

	// ResultRegistry finds the consumer registered for a query.
	ResultRegistry interface {
		ResultConsumer(queryID string) (ResultConsumer, bool)
	}
)

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, inbox <-chan sqltypes.Row, emit Emitter) error {
	return f(ctx, inbox, emit)
}

// Source is implemented by suppliers whose processors produce rows without
// reading their inbox. Only source vertices may have no inbound edge.
type Source interface {
	ProcessorSupplier
	IsSource() bool
}

// SourceFunc is SupplierFunc for a source vertex.
func SourceFunc(newFn func(pctx *ProcessorContext) (Processor, error)) ProcessorSupplier {
	return sourceFunc{supplierFunc(newFn)}
}

type sourceFunc struct {
	supplierFunc
}

func (sourceFunc) IsSource() bool { return true }

// SupplierFunc returns a ProcessorSupplier creating count instances with newFn.
func SupplierFunc(newFn func(pctx *ProcessorContext) (Processor, error)) ProcessorSupplier {
	return supplierFunc(newFn)
}

type supplierFunc func(pctx *ProcessorContext) (Processor, error)

func (f supplierFunc) Get(pctx *ProcessorContext, count int) ([]Processor, error) {
	out := make([]Processor, 0, count)
	for range count {
		p, err := f(pctx)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
