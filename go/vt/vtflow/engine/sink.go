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

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
)

// ClientSinkSupplier forwards the query result to the consumer registered
// for QueryID.
type ClientSinkSupplier struct {
	QueryID         string
	InitiatorMember string
}

var _ dag.ProcessorSupplier = (*ClientSinkSupplier)(nil)

// Get implements dag.ProcessorSupplier.
func (s *ClientSinkSupplier) Get(pctx *dag.ProcessorContext, count int) ([]dag.Processor, error) {
	if pctx.Results == nil {
		return nil, vterrors.Errorf(codes.FailedPrecondition, "no result registry on member %s", pctx.Member)
	}
	// the runtime's query ID wins over the one recorded at compile time
	queryID := pctx.QueryID
	if queryID == "" {
		queryID = s.QueryID
	}
	consumer, ok := pctx.Results.ResultConsumer(queryID)
	if !ok {
		return nil, vterrors.Errorf(codes.NotFound, "no result consumer registered for query %s", queryID)
	}
	return repeat(count, func(ctx context.Context, inbox <-chan sqltypes.Row, _ dag.Emitter) error {
		return drain(ctx, inbox, func(row sqltypes.Row) error {
			return consumer.Consume(ctx, row)
		})
	}), nil
}
